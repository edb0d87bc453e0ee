package wlogging

import (
	"errors"
	"fmt"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/handler"
)

// ErrConfiguration is matched by every *ConfigurationError
var ErrConfiguration = errors.New("configuration error")

// ErrAlreadyBuilt is matched when a mutator runs after GetLogger built the
// handlers; Close the facade before reconfiguring it
var ErrAlreadyBuilt = errors.New("logger already built")

// Errors re-exported from the packages that produce them
var (
	ErrInvalidLevel    = core.ErrInvalidLevel
	ErrAlreadyDefined  = core.ErrAlreadyDefined
	ErrPipelineStopped = handler.ErrPipelineStopped
)

type (
	// InvalidLevelError reports a console level outside the standard set
	InvalidLevelError = core.InvalidLevelError
	// AlreadyDefinedError reports a severity registry collision
	AlreadyDefinedError = core.AlreadyDefinedError
)

// ConfigurationError reports an unusable setting
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("wlogging: invalid configuration: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) hold
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
