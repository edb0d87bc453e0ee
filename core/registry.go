package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrAlreadyDefined is matched by every *AlreadyDefinedError
var ErrAlreadyDefined = errors.New("already defined")

// AlreadyDefinedError reports a registration that collides with an existing
// level name, method name or rank
type AlreadyDefinedError struct {
	// Kind is one of "level", "method" or "rank"
	Kind string
	Name string
}

func (e *AlreadyDefinedError) Error() string {
	return fmt.Sprintf("%s %s already defined in severity registry", e.Kind, e.Name)
}

// Is makes errors.Is(err, ErrAlreadyDefined) hold
func (e *AlreadyDefinedError) Is(target error) bool {
	return target == ErrAlreadyDefined
}

type levelDef struct {
	name   string
	rank   Level
	method string
}

// registry holds every named severity known to the process
var registry = struct {
	mu       sync.RWMutex
	byName   map[string]levelDef
	byMethod map[string]levelDef
	byRank   map[Level]levelDef
}{
	byName:   make(map[string]levelDef),
	byMethod: make(map[string]levelDef),
	byRank:   make(map[Level]levelDef),
}

// reservedMethods are logger methods that are not bound to a single level
var reservedMethods = []string{"log", "warn", "method", "close"}

func init() {
	for _, l := range StandardLevels {
		def := levelDef{name: l.String(), rank: l, method: strings.ToLower(l.String())}
		registry.byName[def.name] = def
		registry.byMethod[def.method] = def
		registry.byRank[def.rank] = def
	}
	for _, m := range reservedMethods {
		registry.byMethod[m] = levelDef{method: m}
	}
}

// RegisterLevel adds a named severity at rank to the process-wide registry.
// methodName defaults to the lower-cased name and is the name under which
// Logger.Method resolves the level.
//
// Registering the exact same (name, rank, methodName) triple again is a
// no-op, so repeated construction of a facade within one process is safe.
// Any other overlap with an existing name, method or rank returns an
// *AlreadyDefinedError.
func RegisterLevel(name string, rank Level, methodName string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("level name cannot be empty")
	}
	if methodName == "" {
		methodName = strings.ToLower(name)
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	want := levelDef{name: name, rank: rank, method: methodName}
	if existing, ok := registry.byName[name]; ok {
		if existing == want {
			return nil
		}
		return &AlreadyDefinedError{Kind: "level", Name: name}
	}
	if _, ok := registry.byMethod[methodName]; ok {
		return &AlreadyDefinedError{Kind: "method", Name: methodName}
	}
	if existing, ok := registry.byRank[rank]; ok {
		return &AlreadyDefinedError{Kind: "rank", Name: existing.name}
	}
	if rank == AnnounceLevel && name != AnnounceLevel.String() {
		return &AlreadyDefinedError{Kind: "rank", Name: AnnounceLevel.String()}
	}

	registry.byName[name] = want
	registry.byMethod[methodName] = want
	registry.byRank[rank] = want
	return nil
}

// LevelByName returns the rank registered under name
func LevelByName(name string) (Level, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	def, ok := registry.byName[name]
	return def.rank, ok
}

// LevelByMethod returns the rank bound to a logger method name.
// Reserved methods that are not tied to a level report false.
func LevelByMethod(method string) (Level, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	def, ok := registry.byMethod[method]
	if !ok || def.name == "" {
		return 0, false
	}
	return def.rank, true
}

func nameForRank(l Level) (string, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	def, ok := registry.byRank[l]
	return def.name, ok
}
