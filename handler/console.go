package handler

import (
	"io"
	"os"
	"sync"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/filter"
	"github.com/wobyy/wlogging/formatter"
)

// ConsoleHandler writes log entries to stdout or any other writer.
// Writes are synchronous and serialized so lines never interleave.
type ConsoleHandler struct {
	gate
	writer          io.Writer
	formatter       formatter.Formatter
	writerFormatter formatter.WriterFormatter
	mu              sync.Mutex
	stats           *Stats
}

// ConsoleConfig holds configuration for console handler
type ConsoleConfig struct {
	// Writer to write to (default: os.Stdout)
	Writer io.Writer
	// Formatter to use (default: TextFormatter)
	Formatter formatter.Formatter
	// Level is the minimum level written (zero accepts everything)
	Level core.Level
	// ExactLevel restricts the handler to records of exactly Level
	ExactLevel bool
	// Filters must all pass for a record to be written
	Filters []filter.Filter
}

// NewConsoleHandler creates a new console handler
func NewConsoleHandler(cfg ConsoleConfig) *ConsoleHandler {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewTextFormatter(formatter.Config{})
	}

	h := &ConsoleHandler{
		writer:    cfg.Writer,
		formatter: cfg.Formatter,
		stats:     NewStats(),
	}
	h.gate.init(cfg.Level, cfg.ExactLevel, cfg.Filters)

	// Cache WriterFormatter for zero-alloc path
	h.writerFormatter, _ = cfg.Formatter.(formatter.WriterFormatter)
	return h
}

// Handle writes the entry if it passes the level and filters
func (h *ConsoleHandler) Handle(entry *core.Entry) error {
	if !h.allow(entry) {
		return nil
	}

	if h.writerFormatter != nil {
		h.mu.Lock()
		err := h.writerFormatter.FormatTo(entry, h.writer)
		h.mu.Unlock()
		if err == nil {
			h.stats.IncrementProcessed()
		}
		return err
	}

	data, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	_, writeErr := h.writer.Write(data)
	h.mu.Unlock()

	if writeErr == nil {
		h.stats.IncrementProcessed()
	}
	return writeErr
}

// Stats returns a snapshot of the current statistics
func (h *ConsoleHandler) Stats() Snapshot {
	return h.stats.GetSnapshot()
}

// Close flushes the writer when it supports Sync. Standard streams are
// left open.
func (h *ConsoleHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writer == os.Stdout || h.writer == os.Stderr {
		return nil
	}
	if s, ok := h.writer.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}
