package handler

import (
	"sync/atomic"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/filter"
)

// Handler defines the interface for log handlers
type Handler interface {
	// Handle processes a log entry
	Handle(entry *core.Entry) error

	// Close closes the handler and releases resources
	Close() error
}

// LevelSetter is implemented by handlers whose threshold can be changed
// while records are flowing.
type LevelSetter interface {
	Level() core.Level
	SetLevel(level core.Level)
}

// gate decides whether a handler accepts an entry. A zero level accepts
// every record; exact restricts the handler to a single level.
type gate struct {
	level  atomic.Int32
	exact  bool
	filter filter.Filter
}

func (g *gate) init(level core.Level, exact bool, filters []filter.Filter) {
	g.level.Store(int32(level))
	g.exact = exact
	if len(filters) > 0 {
		g.filter = filter.All(filters...)
	}
}

func (g *gate) allow(entry *core.Entry) bool {
	threshold := core.Level(g.level.Load())
	if g.exact {
		if entry.Level != threshold {
			return false
		}
	} else if entry.Level < threshold {
		return false
	}
	return g.filter == nil || g.filter.Evaluate(entry)
}

// Level returns the handler's current threshold
func (g *gate) Level() core.Level {
	return core.Level(g.level.Load())
}

// SetLevel changes the handler's threshold; safe for concurrent use
func (g *gate) SetLevel(level core.Level) {
	g.level.Store(int32(level))
}
