package handler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/filter"
	"github.com/wobyy/wlogging/formatter"
)

// ErrFilenameRequired is returned by NewFileHandler without a Filename
var ErrFilenameRequired = errors.New("filename is required")

// FileHandler appends log entries to a file and rotates it by size into
// numbered backups: name.1 is the most recent, name.N the oldest.
//
// Appends and rotations are serialized across processes with an advisory
// lock on name.lock, and the handler reopens its file when another process
// has rotated it away.
type FileHandler struct {
	gate
	filename    string
	file        *os.File
	lock        *fileLock
	formatter   formatter.Formatter
	mu          sync.Mutex
	maxBytes    int64
	backupCount int
	stats       *Stats
	closed      bool
}

// FileConfig holds configuration for file handler
type FileConfig struct {
	// Filename is the path to the log file
	Filename string
	// Formatter to use (default: JSONFormatter)
	Formatter formatter.Formatter
	// Level is the minimum level written (zero accepts everything)
	Level core.Level
	// Filters must all pass for a record to be written
	Filters []filter.Filter
	// MaxBytes rotates the file before a write would push it past this size
	// (0 = never rotate)
	MaxBytes int64
	// BackupCount is the number of numbered backups kept. With 0 the active
	// file is truncated instead of rotated.
	BackupCount int
	// NoLock disables the cross-process lock file
	NoLock bool
}

// NewFileHandler creates a new file handler
func NewFileHandler(cfg FileConfig) (*FileHandler, error) {
	if cfg.Filename == "" {
		return nil, ErrFilenameRequired
	}
	if cfg.MaxBytes < 0 {
		return nil, fmt.Errorf("max bytes must not be negative, got %d", cfg.MaxBytes)
	}
	if cfg.BackupCount < 0 {
		return nil, fmt.Errorf("backup count must not be negative, got %d", cfg.BackupCount)
	}
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewJSONFormatter(formatter.Config{})
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0755); err != nil {
		return nil, err
	}

	file, err := openAppend(cfg.Filename)
	if err != nil {
		return nil, err
	}

	h := &FileHandler{
		filename:    cfg.Filename,
		file:        file,
		formatter:   cfg.Formatter,
		maxBytes:    cfg.MaxBytes,
		backupCount: cfg.BackupCount,
		stats:       NewStats(),
	}
	h.gate.init(cfg.Level, false, cfg.Filters)

	if !cfg.NoLock {
		h.lock, err = openFileLock(cfg.Filename + ".lock")
		if err != nil {
			return nil, multierr.Append(err, file.Close())
		}
	}
	return h, nil
}

func openAppend(name string) (*os.File, error) {
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// Filename returns the path of the active log file
func (h *FileHandler) Filename() string {
	return h.filename
}

// Handle formats the entry and appends it, rotating first when needed
func (h *FileHandler) Handle(entry *core.Entry) error {
	if !h.allow(entry) {
		return nil
	}

	data, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("write %s: %w", h.filename, os.ErrClosed)
	}

	if err := h.lock.acquire(); err != nil {
		return err
	}
	defer h.lock.release()

	if err := h.reopenIfMoved(); err != nil {
		return err
	}
	if err := h.rotateIfNeeded(int64(len(data))); err != nil {
		return err
	}

	if _, err := h.file.Write(data); err != nil {
		return err
	}
	h.stats.IncrementProcessed()
	return nil
}

// reopenIfMoved switches to a fresh file when another process rotated the
// path away from the descriptor we hold
func (h *FileHandler) reopenIfMoved() error {
	if h.lock == nil {
		return nil
	}
	pathInfo, err := os.Stat(h.filename)
	if err == nil {
		fdInfo, err := h.file.Stat()
		if err != nil {
			return err
		}
		if os.SameFile(pathInfo, fdInfo) {
			return nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	file, err := openAppend(h.filename)
	if err != nil {
		return err
	}
	old := h.file
	h.file = file
	return old.Close()
}

// rotateIfNeeded rotates when appending n bytes would exceed maxBytes.
// An empty file is never rotated so an oversized record still lands.
func (h *FileHandler) rotateIfNeeded(n int64) error {
	if h.maxBytes <= 0 {
		return nil
	}
	info, err := h.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 || size+n <= h.maxBytes {
		return nil
	}
	return h.rotate()
}

// rotate shifts name.i to name.i+1, drops the oldest backup and moves the
// active file to name.1
func (h *FileHandler) rotate() error {
	if err := h.file.Sync(); err != nil {
		return err
	}
	if err := h.file.Close(); err != nil {
		return err
	}

	if h.backupCount > 0 {
		if err := os.Remove(h.backupName(h.backupCount)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return h.reopenAfter(err)
		}
		for i := h.backupCount - 1; i > 0; i-- {
			src := h.backupName(i)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			if err := os.Rename(src, h.backupName(i+1)); err != nil {
				return h.reopenAfter(err)
			}
		}
		if err := os.Rename(h.filename, h.backupName(1)); err != nil {
			return h.reopenAfter(err)
		}
	} else if err := os.Truncate(h.filename, 0); err != nil {
		return h.reopenAfter(err)
	}

	file, err := openAppend(h.filename)
	if err != nil {
		return err
	}
	h.file = file
	return nil
}

// reopenAfter restores the active file after a failed rotation step
func (h *FileHandler) reopenAfter(cause error) error {
	file, err := openAppend(h.filename)
	if err != nil {
		return fmt.Errorf("rotation failed: %w, reopen failed: %v", cause, err)
	}
	h.file = file
	return fmt.Errorf("rotation failed: %w", cause)
}

func (h *FileHandler) backupName(i int) string {
	return fmt.Sprintf("%s.%d", h.filename, i)
}

// Stats returns a snapshot of the current statistics
func (h *FileHandler) Stats() Snapshot {
	return h.stats.GetSnapshot()
}

// Close syncs and closes the file. Closing twice is a no-op.
func (h *FileHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	err := multierr.Append(h.file.Sync(), h.file.Close())
	if h.lock != nil {
		err = multierr.Append(err, h.lock.close())
	}
	return err
}
