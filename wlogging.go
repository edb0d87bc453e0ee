package wlogging

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/filter"
	"github.com/wobyy/wlogging/handler"
	"github.com/wobyy/wlogging/logger"
)

// LogsDirName is the directory under the project root holding log files
const LogsDirName = "logs"

// AnnounceMethod is the method name the ANNOUNCE level is registered under
const AnnounceMethod = "announce"

// Wlogging assembles the logging setup for one application and hands out
// its logger.
//
// Filters and handlers may be added or removed until GetLogger builds the
// handlers. After that those mutators return an error wrapping
// ErrAlreadyBuilt; Close the facade to rebuild with a changed setup.
// SetConsoleLevel is the exception and updates the running stdout handler.
type Wlogging struct {
	mu           sync.Mutex
	cfg          Config
	logFile      string
	consoleLevel core.Level

	filters  []userFilter
	removed  map[string]bool
	handlers []userHandler

	sinks  *Sinks
	logger *logger.Logger
}

// New resolves the project root, creates <root>/logs and registers the
// ANNOUNCE level. Filesystem errors from creating the directory are
// returned as is.
func New(cfg Config) (*Wlogging, error) {
	cfg = cfg.withDefaults()

	root, err := resolveRoot(cfg.RootDirectory, cfg.VenvMarker)
	if err != nil {
		return nil, err
	}
	cfg.RootDirectory = root

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	level, err := core.ParseLevel(cfg.ConsoleLevel)
	if err != nil {
		return nil, err
	}

	logsDir := filepath.Join(root, LogsDirName)
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, err
	}

	if err := core.RegisterLevel(core.AnnounceLevel.String(), core.AnnounceLevel, AnnounceMethod); err != nil {
		return nil, err
	}

	return &Wlogging{
		cfg:          cfg,
		logFile:      filepath.Join(logsDir, cfg.LogFileName),
		consoleLevel: level,
		removed:      make(map[string]bool),
	}, nil
}

// Config returns the effective configuration
func (w *Wlogging) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	cfg := w.cfg
	cfg.ConsoleLevel = w.consoleLevel.String()
	return cfg
}

// RootDirectory returns the resolved project root
func (w *Wlogging) RootDirectory() string {
	return w.cfg.RootDirectory
}

// LogFile returns the path of the active rotating log file
func (w *Wlogging) LogFile() string {
	return w.logFile
}

// ConsoleLevel returns the stdout handler's threshold
func (w *Wlogging) ConsoleLevel() core.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.consoleLevel
}

// SetConsoleLevel changes the stdout threshold to one of DEBUG, INFO,
// WARNING, ERROR or CRITICAL, on the live handler when already built
func (w *Wlogging) SetConsoleLevel(level string) error {
	l, err := core.ParseLevel(level)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.consoleLevel = l
	if w.sinks != nil {
		if h, ok := w.sinks.Handler(HandlerStdout); ok {
			if ls, ok := h.(handler.LevelSetter); ok {
				ls.SetLevel(l)
			}
		}
	}
	return nil
}

func (w *Wlogging) errIfBuilt(op string) error {
	if w.logger != nil {
		return &ConfigurationError{Field: op, Reason: "logger already built; Close before reconfiguring", Err: ErrAlreadyBuilt}
	}
	return nil
}

func isBuiltinFilter(name string) bool {
	switch name {
	case FilterProjectRoot, FilterNonAnnounce, FilterAnnounceOnly, FilterEmbeddedKernel:
		return true
	}
	return false
}

func isBuiltinHandler(name string) bool {
	switch name {
	case HandlerStdout, HandlerStdoutAnnounce, HandlerLogfile, HandlerQueue:
		return true
	}
	return false
}

// AddFilter adds a filter every record must pass before reaching any
// handler. Adding an existing name replaces that filter.
func (w *Wlogging) AddFilter(name string, f filter.Filter) error {
	if name == "" || f == nil {
		return configErrorf("Filters", "filter needs a name and a predicate")
	}
	if isBuiltinFilter(name) {
		return configErrorf("Filters", "%q is a built-in filter name", name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.errIfBuilt("AddFilter"); err != nil {
		return err
	}
	for i := range w.filters {
		if w.filters[i].name == name {
			w.filters[i].f = f
			return nil
		}
	}
	w.filters = append(w.filters, userFilter{name: name, f: f})
	return nil
}

// RemoveFilter removes a filter added with AddFilter, or detaches a
// built-in filter from every handler that uses it
func (w *Wlogging) RemoveFilter(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.errIfBuilt("RemoveFilter"); err != nil {
		return err
	}
	if isBuiltinFilter(name) {
		w.removed[name] = true
		return nil
	}
	for i := range w.filters {
		if w.filters[i].name == name {
			w.filters = slices.Delete(w.filters, i, i+1)
			return nil
		}
	}
	return configErrorf("Filters", "unknown filter %q", name)
}

// AddHandler attaches an extra handler to the logger. It receives every
// record that passes the logger's filters, synchronously.
func (w *Wlogging) AddHandler(name string, h handler.Handler) error {
	if name == "" || h == nil {
		return configErrorf("Handlers", "handler needs a name and a value")
	}
	if isBuiltinHandler(name) {
		return configErrorf("Handlers", "%q is a built-in handler name", name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.errIfBuilt("AddHandler"); err != nil {
		return err
	}
	for _, uh := range w.handlers {
		if uh.name == name {
			return configErrorf("Handlers", "handler %q already added", name)
		}
	}
	w.handlers = append(w.handlers, userHandler{name: name, h: h})
	return nil
}

// Handlers lists the handler names, built or pending
func (w *Wlogging) Handlers() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sinks != nil {
		return w.sinks.Names()
	}
	return w.sinkConfiguration().HandlerNames()
}

// Handler returns a built handler by name
func (w *Wlogging) Handler(name string) (handler.Handler, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sinks == nil {
		return nil, false
	}
	return w.sinks.Handler(name)
}

// SinkConfiguration returns the setup GetLogger would build now
func (w *Wlogging) SinkConfiguration() SinkConfiguration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sinkConfiguration()
}

func (w *Wlogging) sinkConfiguration() SinkConfiguration {
	removed := make(map[string]bool, len(w.removed))
	for k, v := range w.removed {
		removed[k] = v
	}
	return newSinkConfiguration(w.cfg, w.cfg.RootDirectory, w.logFile, w.consoleLevel,
		slices.Clone(w.filters), removed, slices.Clone(w.handlers))
}

// GetLogger returns the facade's logger, building the handlers and
// starting the delivery pipeline on first use. A level, when given, is
// applied with SetConsoleLevel first. Later calls return the same logger.
//
// The pipeline is stopped by Shutdown; Close stops it directly.
func (w *Wlogging) GetLogger(level ...string) (*logger.Logger, error) {
	if len(level) > 0 && level[0] != "" {
		if err := w.SetConsoleLevel(level[0]); err != nil {
			return nil, err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		return w.logger, nil
	}

	sc := w.sinkConfiguration()
	sinks, err := sc.Materialize()
	if err != nil {
		return nil, err
	}
	sinks.Start()

	lg := logger.NewBuilder().
		WithName(sc.Root.Name).
		WithLevel(sc.Root.Level).
		WithHandler(sinks.Root()).
		WithFilters(sinks.rootFs...).
		Build()
	logger.Register(lg)

	w.sinks, w.logger = sinks, lg
	RegisterShutdown(w.Close)
	return lg, nil
}

// Slog returns a log/slog front-end over the same handlers
func (w *Wlogging) Slog() (*slog.Logger, error) {
	lg, err := w.GetLogger()
	if err != nil {
		return nil, err
	}
	return lg.Slog(), nil
}

// Stop drains the delivery pipeline into the log file and stops it. The
// logger keeps printing to the console; file records are dropped.
func (w *Wlogging) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sinks == nil {
		return nil
	}
	return w.sinks.Stop()
}

// Close stops the pipeline, closes every handler and forgets the logger,
// so the next GetLogger builds a fresh setup
func (w *Wlogging) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sinks == nil {
		return nil
	}
	err := w.sinks.Close()
	logger.Unregister(w.logger)
	w.sinks, w.logger = nil, nil
	return err
}
