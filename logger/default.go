package logger

import (
	"os"
	"sync"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/formatter"
	"github.com/wobyy/wlogging/handler"
)

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex

	// named holds at most one logger per name for the whole process
	named   = make(map[string]*Logger)
	namedMu sync.RWMutex
)

func init() {
	// Until configured, warnings and above go to stderr
	h := handler.NewConsoleHandler(handler.ConsoleConfig{
		Writer:    os.Stderr,
		Formatter: formatter.NewTextFormatter(formatter.Config{}),
		Level:     core.WarnLevel,
	})

	defaultLogger = NewBuilder().
		WithHandler(h).
		WithCallerSkip(1).
		Build()
}

// Default returns the default logger
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger. The package-level functions add one
// frame, so l should be built with WithCallerSkip(1) for accurate callers.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Register makes l the process-wide logger for its name and returns the
// logger it replaced, if any
func Register(l *Logger) *Logger {
	namedMu.Lock()
	defer namedMu.Unlock()
	prev := named[l.name]
	named[l.name] = l
	return prev
}

// Get returns the logger registered under name
func Get(name string) (*Logger, bool) {
	namedMu.RLock()
	defer namedMu.RUnlock()
	l, ok := named[name]
	return l, ok
}

// Unregister removes l if it is still the logger registered for its name
func Unregister(l *Logger) {
	namedMu.Lock()
	defer namedMu.Unlock()
	if named[l.name] == l {
		delete(named, l.name)
	}
}

// Package-level convenience functions using the default logger

// Debug logs a debug message using the default logger
func Debug(msg string, args ...any) {
	Default().Log(core.DebugLevel, msg, args...)
}

// Info logs an info message using the default logger
func Info(msg string, args ...any) {
	Default().Log(core.InfoLevel, msg, args...)
}

// Warning logs a warning message using the default logger
func Warning(msg string, args ...any) {
	Default().Log(core.WarnLevel, msg, args...)
}

// Error logs an error message using the default logger
func Error(msg string, args ...any) {
	Default().Log(core.ErrorLevel, msg, args...)
}

// Critical logs a critical message using the default logger
func Critical(msg string, args ...any) {
	Default().Log(core.CriticalLevel, msg, args...)
}

// Announce logs a print-like message using the default logger
func Announce(msg string, args ...any) {
	Default().Log(core.AnnounceLevel, msg, args...)
}
