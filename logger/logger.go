package logger

import (
	"fmt"
	"log/slog"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/filter"
	"github.com/wobyy/wlogging/handler"
)

// Logger is the main logging interface (immutable)
type Logger struct {
	name       string
	handler    handler.Handler
	level      core.Level
	filter     filter.Filter
	callerSkip int
}

// Builder provides a fluent API for building Logger instances
type Builder struct {
	name       string
	handler    handler.Handler
	level      core.Level
	filters    []filter.Filter
	callerSkip int
}

// NewBuilder creates a new logger builder
func NewBuilder() *Builder {
	return &Builder{
		level:      core.DebugLevel, // Handlers decide what is shown
		callerSkip: 2,               // log -> level method -> caller
	}
}

// WithName sets the logger name recorded on every entry
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithHandler sets the handler
func (b *Builder) WithHandler(h handler.Handler) *Builder {
	b.handler = h
	return b
}

// WithLevel sets the log level
func (b *Builder) WithLevel(level core.Level) *Builder {
	b.level = level
	return b
}

// WithFilters adds filters every entry must pass before reaching the handler
func (b *Builder) WithFilters(filters ...filter.Filter) *Builder {
	b.filters = append(b.filters, filters...)
	return b
}

// WithCallerSkip adds extra stack frames to skip when capturing the caller,
// for wrappers around the logger
func (b *Builder) WithCallerSkip(skip int) *Builder {
	b.callerSkip += skip
	return b
}

// Build creates the Logger instance
func (b *Builder) Build() *Logger {
	l := &Logger{
		name:       b.name,
		handler:    b.handler,
		level:      b.level,
		callerSkip: b.callerSkip,
	}
	if len(b.filters) > 0 {
		l.filter = filter.All(append([]filter.Filter(nil), b.filters...)...)
	}
	return l
}

// Name returns the logger name
func (l *Logger) Name() string {
	return l.name
}

// Level returns the logger's minimum level
func (l *Logger) Level() core.Level {
	return l.level
}

// Named creates a child logger that shares the handler and filters but
// records a dotted name, like "app.db"
func (l *Logger) Named(name string) *Logger {
	child := *l
	if l.name != "" && name != "" {
		child.name = l.name + "." + name
	} else if name != "" {
		child.name = name
	}
	return &child
}

// Enabled reports whether an entry at level would pass the level gate
func (l *Logger) Enabled(level core.Level) bool {
	return l.handler != nil && level >= l.level
}

// Log logs a message at the specified level. With args, msg is a
// fmt format string.
func (l *Logger) Log(level core.Level, msg string, args ...any) {
	if level < l.level {
		return
	}
	l.log(0, level, msg, args)
}

// log is the internal logging method; depth counts extra frames between
// the user's call and the exported method
func (l *Logger) log(depth int, level core.Level, msg string, args []any) {
	// Handler check - exit if no handler (avoid any work)
	if l.handler == nil {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	entry := core.NewEntry(level, l.name, msg)
	entry.Caller = core.GetCaller(l.callerSkip + depth)
	_ = l.dispatch(entry)
}

// dispatch applies the logger filters and hands the entry to the handler
func (l *Logger) dispatch(entry *core.Entry) error {
	if l.filter != nil && !l.filter.Evaluate(entry) {
		return nil
	}
	return l.handler.Handle(entry)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(0, core.DebugLevel, msg, args)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(0, core.InfoLevel, msg, args)
}

// Warning logs a warning message
func (l *Logger) Warning(msg string, args ...any) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(0, core.WarnLevel, msg, args)
}

// Warn is an alias for Warning
func (l *Logger) Warn(msg string, args ...any) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(0, core.WarnLevel, msg, args)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(0, core.ErrorLevel, msg, args)
}

// Critical logs a critical message
func (l *Logger) Critical(msg string, args ...any) {
	if core.CriticalLevel < l.level {
		return
	}
	l.log(0, core.CriticalLevel, msg, args)
}

// Announce logs a print-like message that ranks above every standard level
func (l *Logger) Announce(msg string, args ...any) {
	if core.AnnounceLevel < l.level {
		return
	}
	l.log(0, core.AnnounceLevel, msg, args)
}

// Method returns a logging function for a level registered with
// core.RegisterLevel, looked up by its method name ("announce", "trace").
func (l *Logger) Method(name string) (func(msg string, args ...any), bool) {
	level, ok := core.LevelByMethod(name)
	if !ok {
		return nil, false
	}
	return func(msg string, args ...any) {
		if level < l.level {
			return
		}
		l.log(0, level, msg, args)
	}, true
}

// Handler returns a handler.Handler that feeds entries through this
// logger's level and filters
func (l *Logger) Handler() handler.Handler {
	return loggerHandler{l}
}

// Slog returns a log/slog front-end writing through this logger
func (l *Logger) Slog() *slog.Logger {
	return slog.New(handler.NewSlogHandler(l.Handler(), l.level, l.name))
}

// Close closes the logger's handler
func (l *Logger) Close() error {
	if l.handler != nil {
		return l.handler.Close()
	}
	return nil
}

// loggerHandler adapts a Logger to handler.Handler. Closing it is a no-op;
// the logger owns its handler.
type loggerHandler struct {
	l *Logger
}

func (h loggerHandler) Handle(entry *core.Entry) error {
	if entry.Level < h.l.level || h.l.handler == nil {
		return nil
	}
	return h.l.dispatch(entry)
}

func (h loggerHandler) Close() error {
	return nil
}
