package logger

import (
	"github.com/wobyy/wlogging/core"
)

// Level Re-export type and constants for convenience
type Level = core.Level

const (
	DebugLevel    = core.DebugLevel
	InfoLevel     = core.InfoLevel
	WarnLevel     = core.WarnLevel
	ErrorLevel    = core.ErrorLevel
	CriticalLevel = core.CriticalLevel
	AnnounceLevel = core.AnnounceLevel
)

// ParseLevel converts one of the standard level names to a Level
func ParseLevel(s string) (Level, error) {
	return core.ParseLevel(s)
}
