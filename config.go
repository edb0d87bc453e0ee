package wlogging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/filter"
	"github.com/wobyy/wlogging/handler"
)

// Config holds all facade configuration values. Zero values are replaced
// by the defaults below, so a Config only needs the fields it changes.
//
// Config is read once by New. Changing it afterwards has no effect; use
// the facade's methods instead.
type Config struct {
	// RootDirectory is the project root; logs go to <root>/logs.
	// Resolved from WLOGGING_ROOT_DIR or a .venv install path when empty.
	RootDirectory string `toml:"root_directory"`
	// ConsoleLevel is the minimum level printed by the stdout handler
	ConsoleLevel string `toml:"console_level"`

	// Rotating file
	LogFileName         string `toml:"log_file_name"`
	RotationSizeBytes   int64  `toml:"rotation_size_bytes"`   // Rotate before exceeding this size
	RotationBackupCount int    `toml:"rotation_backup_count"` // Numbered backups kept

	// LoggerName is recorded on every entry of the facade's logger
	LoggerName string `toml:"logger_name"`

	// Delivery pipeline
	QueueSize    int                    `toml:"queue_size"`
	Overflow     handler.OverflowPolicy `toml:"overflow"`
	BlockTimeout time.Duration          `toml:"block_timeout"` // 0 waits indefinitely
	DrainTimeout time.Duration          `toml:"drain_timeout"`

	// Project filtering
	RootMatch            filter.MatchMode `toml:"root_match"`
	AllowEmbeddedKernel  bool             `toml:"allow_embedded_kernel"` // Let kernel diagnostics reach stdout
	EmbeddedKernelMarker string           `toml:"embedded_kernel_marker"`
	VenvMarker           string           `toml:"venv_marker"`

	// Stdout receives console output (default: os.Stdout)
	Stdout io.Writer `toml:"-"`
	// ErrorOutput receives internal delivery errors (default: os.Stderr)
	ErrorOutput io.Writer `toml:"-"`
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	ConsoleLevel: "WARNING",

	LogFileName:         "logs.jsonl",
	RotationSizeBytes:   5 * 1_000_000,
	RotationBackupCount: 10,

	LoggerName: "wlogging_logger",

	QueueSize:    1024,
	Overflow:     handler.Block,
	DrainTimeout: 5 * time.Second,

	RootMatch:            filter.MatchBasename,
	EmbeddedKernelMarker: filter.DefaultKernelMarker,
	VenvMarker:           filter.DefaultVenvMarker,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() Config {
	cfg := defaultConfig
	cfg.Stdout = os.Stdout
	cfg.ErrorOutput = os.Stderr
	return cfg
}

// withDefaults fills every zero field from DefaultConfig. A zero
// RotationSizeBytes or RotationBackupCount also means "default".
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConsoleLevel == "" {
		c.ConsoleLevel = d.ConsoleLevel
	}
	if c.LogFileName == "" {
		c.LogFileName = d.LogFileName
	}
	if c.RotationSizeBytes == 0 {
		c.RotationSizeBytes = d.RotationSizeBytes
	}
	if c.RotationBackupCount == 0 {
		c.RotationBackupCount = d.RotationBackupCount
	}
	if c.LoggerName == "" {
		c.LoggerName = d.LoggerName
	}
	if c.QueueSize == 0 {
		c.QueueSize = d.QueueSize
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	if c.EmbeddedKernelMarker == "" {
		c.EmbeddedKernelMarker = d.EmbeddedKernelMarker
	}
	if c.VenvMarker == "" {
		c.VenvMarker = d.VenvMarker
	}
	if c.Stdout == nil {
		c.Stdout = d.Stdout
	}
	if c.ErrorOutput == nil {
		c.ErrorOutput = d.ErrorOutput
	}
	return c
}

// validate checks the limits New cannot correct
func (c Config) validate() error {
	if c.RotationSizeBytes <= 0 {
		return configErrorf("RotationSizeBytes", "must be positive, got %d", c.RotationSizeBytes)
	}
	if c.RotationBackupCount < 0 {
		return configErrorf("RotationBackupCount", "must not be negative, got %d", c.RotationBackupCount)
	}
	if c.QueueSize < 0 {
		return configErrorf("QueueSize", "must not be negative, got %d", c.QueueSize)
	}
	if c.BlockTimeout < 0 || c.DrainTimeout < 0 {
		return configErrorf("BlockTimeout/DrainTimeout", "must not be negative")
	}
	switch c.Overflow {
	case handler.Block, handler.DropNewest, handler.DropOldest:
	default:
		return configErrorf("Overflow", "unknown policy %d", int(c.Overflow))
	}
	if _, err := core.ParseLevel(c.ConsoleLevel); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads a TOML file into a Config. Keys missing from the file
// keep their defaults.
//
//	root_directory = "/srv/app"
//	console_level = "INFO"
//	rotation_size_bytes = 10_000_000
//	overflow = "drop_oldest"
//	drain_timeout = "2s"
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("wlogging: failed to load config from %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, configErrorf("file", "unknown key %q in %s", undecoded[0].String(), path)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
