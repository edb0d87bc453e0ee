package handler

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"strings"

	"github.com/wobyy/wlogging/core"
)

// SlogHandler is an adapter that implements slog.Handler on top of a Handler,
// so code written against log/slog reaches the same sinks. Attributes are
// appended to the message as key=value pairs.
type SlogHandler struct {
	handler    Handler
	level      core.Level
	loggerName string
	attrs      string
	group      string
}

// NewSlogHandler creates a new slog.Handler adapter wrapping the given Handler.
func NewSlogHandler(h Handler, level core.Level, loggerName string) *SlogHandler {
	return &SlogHandler{
		handler:    h,
		level:      level,
		loggerName: loggerName,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (s *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return slogLevelToCore(level) >= s.level
}

// Handle converts the record to a core.Entry and passes it on
func (s *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	var msg strings.Builder
	msg.WriteString(record.Message)
	msg.WriteString(s.attrs)
	record.Attrs(func(a slog.Attr) bool {
		appendAttr(&msg, s.group, a)
		return true
	})

	entry := core.NewEntry(slogLevelToCore(record.Level), s.loggerName, msg.String())
	if !record.Time.IsZero() {
		entry.Time = record.Time
	}
	if record.PC != 0 {
		entry.Caller = callerFromPC(record.PC)
	}
	return s.handler.Handle(entry)
}

// WithAttrs returns a new SlogHandler with additional attributes.
func (s *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	var b strings.Builder
	b.WriteString(s.attrs)
	for _, a := range attrs {
		appendAttr(&b, s.group, a)
	}
	clone := *s
	clone.attrs = b.String()
	return &clone
}

// WithGroup returns a new SlogHandler with the given group name.
func (s *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	clone := *s
	if s.group != "" {
		clone.group = s.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

// slogLevelToCore converts a slog.Level to a core.Level.
func slogLevelToCore(level slog.Level) core.Level {
	switch {
	case level >= slog.LevelError+4:
		return core.CriticalLevel
	case level >= slog.LevelError:
		return core.ErrorLevel
	case level >= slog.LevelWarn:
		return core.WarnLevel
	case level >= slog.LevelInfo:
		return core.InfoLevel
	default:
		return core.DebugLevel
	}
}

// appendAttr writes " key=value", flattening groups into dotted keys
func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if group != "" && key != "" {
		key = group + "." + key
	} else if key == "" {
		key = group
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			appendAttr(b, key, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	val := a.Value.String()
	if strings.ContainsAny(val, " =\"") {
		val = strconv.Quote(val)
	}
	b.WriteString(val)
}

func callerFromPC(pc uintptr) core.CallerInfo {
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return core.CallerInfo{}
	}
	return core.NewCallerInfo(f.File, f.Function, f.Line)
}
