package wlogging

import (
	"io"

	"go.uber.org/multierr"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/filter"
	"github.com/wobyy/wlogging/formatter"
	"github.com/wobyy/wlogging/handler"
)

// Formatter names
const (
	FormatterPlain  = "plain"
	FormatterSimple = "simple"
	FormatterJSON   = "json"
)

// Built-in filter names
const (
	FilterProjectRoot    = "project_root"
	FilterNonAnnounce    = "non_announce"
	FilterAnnounceOnly   = "announce_only"
	FilterEmbeddedKernel = "embedded_kernel"
)

// Built-in handler names
const (
	HandlerStdout         = "stdout"
	HandlerStdoutAnnounce = "stdout_announce"
	HandlerLogfile        = "logfile"
	HandlerQueue          = "queue_handler"
)

// HandlerKind selects how a HandlerSpec is materialized
type HandlerKind int

const (
	// KindConsole writes to Stdout
	KindConsole HandlerKind = iota
	// KindRotatingFile appends to the rotating log file
	KindRotatingFile
	// KindQueue fronts Target with the delivery pipeline
	KindQueue
	// KindCustom uses a caller-supplied handler as is
	KindCustom
)

// HandlerSpec describes one named handler.
//
// A record passes when every Filters entry passes and, if Restrict is
// non-empty, either every Restrict entry or any Allow entry passes. Names
// missing from the filter set are skipped.
type HandlerSpec struct {
	Name       string
	Kind       HandlerKind
	Formatter  string
	Level      core.Level
	ExactLevel bool
	Restrict   []string
	Allow      []string
	Filters    []string
	// Target names the handler a KindQueue spec wraps
	Target string
	// Handler is the instance used for KindCustom
	Handler handler.Handler
}

// RootSpec describes the logger every record enters through
type RootSpec struct {
	Name     string
	Level    core.Level
	Handlers []string
	Filters  []string
}

// FileSpec locates and bounds the rotating file
type FileSpec struct {
	Path        string
	MaxBytes    int64
	BackupCount int
}

// SinkConfiguration is the complete, declarative logging setup. It is
// built once from a Config and never modified; Materialize turns it into
// live handlers.
type SinkConfiguration struct {
	Formatters map[string]formatter.Formatter
	Filters    map[string]filter.Filter
	Handlers   []HandlerSpec
	Root       RootSpec
	File       FileSpec
	Queue      handler.QueueConfig
	Stdout     io.Writer
}

// userFilter and userHandler keep insertion order for the facade
type userFilter struct {
	name string
	f    filter.Filter
}

type userHandler struct {
	name string
	h    handler.Handler
}

// newSinkConfiguration assembles the built-in formatters, filters and
// handlers for a resolved Config. removed lists built-in filter names to
// leave out.
func newSinkConfiguration(cfg Config, root, logFile string, consoleLevel core.Level,
	filters []userFilter, removed map[string]bool, extra []userHandler) SinkConfiguration {

	builtinFilters := map[string]filter.Filter{
		FilterProjectRoot: &filter.ProjectRoot{
			Root:       root,
			Mode:       cfg.RootMatch,
			VenvMarker: cfg.VenvMarker,
		},
		FilterNonAnnounce:    filter.ExcludeAnnounce,
		FilterAnnounceOnly:   filter.OnlyAnnounce,
		FilterEmbeddedKernel: filter.EmbeddedKernel{Marker: cfg.EmbeddedKernelMarker},
	}

	allFilters := make(map[string]filter.Filter, len(builtinFilters)+len(filters))
	for name, f := range builtinFilters {
		if !removed[name] {
			allFilters[name] = f
		}
	}
	rootFilters := make([]string, 0, len(filters))
	for _, uf := range filters {
		allFilters[uf.name] = uf.f
		rootFilters = append(rootFilters, uf.name)
	}

	var allow []string
	if cfg.AllowEmbeddedKernel {
		allow = []string{FilterEmbeddedKernel}
	}

	specs := []HandlerSpec{
		{
			Name:      HandlerStdout,
			Kind:      KindConsole,
			Formatter: FormatterSimple,
			Level:     consoleLevel,
			Restrict:  []string{FilterProjectRoot},
			Allow:     allow,
			Filters:   []string{FilterNonAnnounce},
		},
		{
			Name:       HandlerStdoutAnnounce,
			Kind:       KindConsole,
			Formatter:  FormatterPlain,
			Level:      core.AnnounceLevel,
			ExactLevel: true,
			Filters:    []string{FilterProjectRoot, FilterAnnounceOnly},
		},
		{
			Name:      HandlerLogfile,
			Kind:      KindRotatingFile,
			Formatter: FormatterJSON,
			Level:     core.DebugLevel,
		},
		{
			Name:   HandlerQueue,
			Kind:   KindQueue,
			Target: HandlerLogfile,
		},
	}
	rootHandlers := []string{HandlerQueue, HandlerStdout, HandlerStdoutAnnounce}
	for _, uh := range extra {
		specs = append(specs, HandlerSpec{Name: uh.name, Kind: KindCustom, Handler: uh.h})
		rootHandlers = append(rootHandlers, uh.name)
	}

	return SinkConfiguration{
		Formatters: map[string]formatter.Formatter{
			FormatterPlain:  formatter.NewPlainFormatter(),
			FormatterSimple: formatter.NewTextFormatter(formatter.Config{}),
			FormatterJSON:   formatter.NewJSONFormatter(formatter.Config{}),
		},
		Filters:  allFilters,
		Handlers: specs,
		Root: RootSpec{
			Name:     cfg.LoggerName,
			Level:    core.DebugLevel,
			Handlers: rootHandlers,
			Filters:  rootFilters,
		},
		File: FileSpec{
			Path:        logFile,
			MaxBytes:    cfg.RotationSizeBytes,
			BackupCount: cfg.RotationBackupCount,
		},
		Queue: handler.QueueConfig{
			QueueSize:    cfg.QueueSize,
			Overflow:     cfg.Overflow,
			BlockTimeout: cfg.BlockTimeout,
			DrainTimeout: cfg.DrainTimeout,
			ErrorOutput:  cfg.ErrorOutput,
		},
		Stdout: cfg.Stdout,
	}
}

// HandlerNames lists the configured handlers in build order
func (sc SinkConfiguration) HandlerNames() []string {
	names := make([]string, len(sc.Handlers))
	for i, spec := range sc.Handlers {
		names[i] = spec.Name
	}
	return names
}

// resolve looks up named filters, skipping unknown names
func (sc SinkConfiguration) resolve(names []string) []filter.Filter {
	out := make([]filter.Filter, 0, len(names))
	for _, name := range names {
		if f, ok := sc.Filters[name]; ok {
			out = append(out, f)
		}
	}
	return out
}

// filterFor composes a spec's filter names into one filter
func (sc SinkConfiguration) filterFor(spec HandlerSpec) []filter.Filter {
	fs := sc.resolve(spec.Filters)
	restrict := sc.resolve(spec.Restrict)
	if len(restrict) > 0 {
		scope := filter.All(restrict...)
		if allow := sc.resolve(spec.Allow); len(allow) > 0 {
			scope = filter.Any(append([]filter.Filter{scope}, allow...)...)
		}
		fs = append([]filter.Filter{scope}, fs...)
	}
	return fs
}

func (sc SinkConfiguration) formatter(name string) (formatter.Formatter, error) {
	f, ok := sc.Formatters[name]
	if !ok {
		return nil, configErrorf("Formatter", "unknown formatter %q", name)
	}
	return f, nil
}

// Sinks are the live handlers built from a SinkConfiguration
type Sinks struct {
	byName map[string]handler.Handler
	order  []string
	root   *handler.MultiHandler
	queue  *handler.QueueHandler
	rootFs []filter.Filter
}

// Materialize builds every handler. Nothing is started; on error the
// handlers built so far are closed.
func (sc SinkConfiguration) Materialize() (_ *Sinks, err error) {
	s := &Sinks{byName: make(map[string]handler.Handler, len(sc.Handlers))}
	defer func() {
		if err != nil {
			err = multierr.Append(err, s.closeAll())
		}
	}()

	for _, spec := range sc.Handlers {
		if _, dup := s.byName[spec.Name]; dup {
			return nil, configErrorf("Handlers", "duplicate handler name %q", spec.Name)
		}
		h, err := sc.build(spec, s)
		if err != nil {
			return nil, err
		}
		s.byName[spec.Name] = h
		s.order = append(s.order, spec.Name)
		if q, ok := h.(*handler.QueueHandler); ok && s.queue == nil {
			s.queue = q
		}
	}

	roots := make([]handler.Handler, 0, len(sc.Root.Handlers))
	for _, name := range sc.Root.Handlers {
		h, ok := s.byName[name]
		if !ok {
			return nil, configErrorf("Root", "unknown handler %q", name)
		}
		roots = append(roots, h)
	}
	s.root = handler.NewMultiHandler(roots...)
	s.rootFs = sc.resolve(sc.Root.Filters)
	return s, nil
}

func (sc SinkConfiguration) build(spec HandlerSpec, s *Sinks) (handler.Handler, error) {
	switch spec.Kind {
	case KindConsole:
		f, err := sc.formatter(spec.Formatter)
		if err != nil {
			return nil, err
		}
		return handler.NewConsoleHandler(handler.ConsoleConfig{
			Writer:     sc.Stdout,
			Formatter:  f,
			Level:      spec.Level,
			ExactLevel: spec.ExactLevel,
			Filters:    sc.filterFor(spec),
		}), nil

	case KindRotatingFile:
		f, err := sc.formatter(spec.Formatter)
		if err != nil {
			return nil, err
		}
		return handler.NewFileHandler(handler.FileConfig{
			Filename:    sc.File.Path,
			Formatter:   f,
			Level:       spec.Level,
			Filters:     sc.filterFor(spec),
			MaxBytes:    sc.File.MaxBytes,
			BackupCount: sc.File.BackupCount,
		})

	case KindQueue:
		target, ok := s.byName[spec.Target]
		if !ok {
			return nil, configErrorf("Handlers", "queue %q wraps unknown handler %q", spec.Name, spec.Target)
		}
		return handler.NewQueueHandler(target, sc.Queue), nil

	case KindCustom:
		if spec.Handler == nil {
			return nil, configErrorf("Handlers", "handler %q is nil", spec.Name)
		}
		return spec.Handler, nil
	}
	return nil, configErrorf("Handlers", "handler %q has unknown kind %d", spec.Name, spec.Kind)
}

// Names lists the live handlers in build order
func (s *Sinks) Names() []string {
	return append([]string(nil), s.order...)
}

// Handler returns the live handler registered under name
func (s *Sinks) Handler(name string) (handler.Handler, bool) {
	h, ok := s.byName[name]
	return h, ok
}

// Root returns the fan-out attached to the logger
func (s *Sinks) Root() handler.Handler {
	return s.root
}

// Queue returns the delivery pipeline in front of the file
func (s *Sinks) Queue() *handler.QueueHandler {
	return s.queue
}

// Start starts the delivery pipeline
func (s *Sinks) Start() {
	if s.queue != nil {
		s.queue.Start()
	}
}

// Stop drains and stops the delivery pipeline
func (s *Sinks) Stop() error {
	if s.queue == nil {
		return nil
	}
	return s.queue.Stop()
}

// Close stops the pipeline and closes every handler
func (s *Sinks) Close() error {
	return multierr.Append(s.Stop(), s.closeAll())
}

// closeAll closes handlers in reverse build order so wrappers go first
func (s *Sinks) closeAll() error {
	var err error
	for i := len(s.order) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.byName[s.order[i]].Close())
	}
	return err
}
