package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Level represents the severity level of a log entry
type Level int8

const (
	// DebugLevel for detailed debugging information
	DebugLevel Level = 10
	// InfoLevel for general informational messages
	InfoLevel Level = 20
	// WarnLevel for warning messages (default console threshold)
	WarnLevel Level = 30
	// ErrorLevel for error messages
	ErrorLevel Level = 40
	// CriticalLevel for failures the application cannot recover from
	CriticalLevel Level = 50
	// AnnounceLevel is the print-like level; it ranks above every standard level
	AnnounceLevel Level = 100
)

// StandardLevels lists the five levels accepted by ParseLevel, lowest first
var StandardLevels = [...]Level{DebugLevel, InfoLevel, WarnLevel, ErrorLevel, CriticalLevel}

// AllLevels lists every built-in level including AnnounceLevel
var AllLevels = [...]Level{DebugLevel, InfoLevel, WarnLevel, ErrorLevel, CriticalLevel, AnnounceLevel}

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARNING"
	case ErrorLevel:
		return "ERROR"
	case CriticalLevel:
		return "CRITICAL"
	case AnnounceLevel:
		return "ANNOUNCE"
	}
	if name, ok := nameForRank(l); ok {
		return name
	}
	return "Level " + strconv.Itoa(int(l))
}

// ErrInvalidLevel is matched by every *InvalidLevelError
var ErrInvalidLevel = errors.New("invalid log level")

// InvalidLevelError reports a level string outside the standard set
type InvalidLevelError struct {
	Level string
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q: must be one of DEBUG, INFO, WARNING, ERROR, CRITICAL", e.Level)
}

// Is makes errors.Is(err, ErrInvalidLevel) hold
func (e *InvalidLevelError) Is(target error) bool {
	return target == ErrInvalidLevel
}

// ParseLevel converts one of the five standard level names to a Level.
// WARN is accepted as an alias of WARNING. ANNOUNCE and registered custom
// levels are rejected: they are not valid console thresholds.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DebugLevel, nil
	case "INFO":
		return InfoLevel, nil
	case "WARN", "WARNING":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "CRITICAL":
		return CriticalLevel, nil
	default:
		return 0, &InvalidLevelError{Level: s}
	}
}
