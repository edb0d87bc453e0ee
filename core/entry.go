package core

import (
	"bytes"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Entry represents a log record with all its metadata
type Entry struct {
	Time       time.Time
	Level      Level
	Message    string
	LoggerName string
	ThreadName string
	Caller     CallerInfo
}

// CallerInfo contains information about the call site that produced an entry
type CallerInfo struct {
	// File is the full source path (pathname)
	File string
	// Module is the source file name without extension
	Module   string
	Function string
	Line     int
	Defined  bool
}

// NewEntry creates an entry stamped with the current time and goroutine name
func NewEntry(level Level, loggerName, msg string) *Entry {
	return &Entry{
		Time:       time.Now(),
		Level:      level,
		Message:    msg,
		LoggerName: loggerName,
		ThreadName: GoroutineName(),
	}
}

// GetCaller retrieves caller information
func GetCaller(skip int) CallerInfo {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return CallerInfo{}
	}

	var funcName string
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcName = fn.Name()
	}
	return NewCallerInfo(file, funcName, line)
}

// NewCallerInfo derives the module and short function name from a source
// path and a fully qualified function name
func NewCallerInfo(file, function string, line int) CallerInfo {
	base := filepath.Base(file)
	return CallerInfo{
		File:     file,
		Module:   strings.TrimSuffix(base, filepath.Ext(base)),
		Function: filepath.Base(function),
		Line:     line,
		Defined:  true,
	}
}

var goroutinePrefix = []byte("goroutine ")

// GoroutineName returns a stable name for the calling goroutine.
// Goroutine 1 is reported as MainThread, every other goroutine as
// goroutine-<id>.
func GoroutineName() string {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return "unknown"
	}
	if id == 1 {
		return "MainThread"
	}
	return "goroutine-" + strconv.FormatUint(id, 10)
}
