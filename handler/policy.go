package handler

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/wobyy/wlogging/core"
)

// OverflowPolicy defines what a producer does when the async queue is full
type OverflowPolicy int

const (
	// Block waits for space, bounded by the pipeline's BlockTimeout if set
	Block OverflowPolicy = iota
	// DropNewest drops the record being logged
	DropNewest
	// DropOldest evicts the oldest queued record to make room
	DropOldest
)

// String returns the string representation of the policy
func (p OverflowPolicy) String() string {
	switch p {
	case Block:
		return "Block"
	case DropNewest:
		return "DropNewest"
	case DropOldest:
		return "DropOldest"
	default:
		return "Unknown"
	}
}

// ParseOverflowPolicy converts a policy name, case-insensitively
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block", "":
		return Block, nil
	case "dropnewest", "drop_newest", "drop-newest":
		return DropNewest, nil
	case "dropoldest", "drop_oldest", "drop-oldest":
		return DropOldest, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (p OverflowPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *OverflowPolicy) UnmarshalText(text []byte) error {
	v, err := ParseOverflowPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Stats tracks handler statistics. Dropped records are counted per level
// rank so custom registered levels are covered too.
type Stats struct {
	dropped   [256]atomic.Uint64
	blocked   atomic.Uint64
	processed atomic.Uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// IncrementDropped atomically increments the dropped counter for a level
func (s *Stats) IncrementDropped(level core.Level) {
	s.dropped[uint8(level)].Add(1)
}

// IncrementBlocked atomically increments the blocked counter
func (s *Stats) IncrementBlocked() {
	s.blocked.Add(1)
}

// IncrementProcessed atomically increments the processed counter
func (s *Stats) IncrementProcessed() {
	s.processed.Add(1)
}

// GetDropped returns the dropped count for a level
func (s *Stats) GetDropped(level core.Level) uint64 {
	return s.dropped[uint8(level)].Load()
}

// GetBlocked returns the blocked count
func (s *Stats) GetBlocked() uint64 {
	return s.blocked.Load()
}

// GetProcessed returns the processed count
func (s *Stats) GetProcessed() uint64 {
	return s.processed.Load()
}

// GetTotalDropped returns the total dropped across all levels
func (s *Stats) GetTotalDropped() uint64 {
	var total uint64
	for i := range s.dropped {
		total += s.dropped[i].Load()
	}
	return total
}

// Reset resets all counters to zero
func (s *Stats) Reset() {
	for i := range s.dropped {
		s.dropped[i].Store(0)
	}
	s.blocked.Store(0)
	s.processed.Store(0)
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	// DroppedTotal always holds the built-in levels, plus any other level
	// with a non-zero count
	DroppedTotal   map[core.Level]uint64
	BlockedTotal   uint64
	ProcessedTotal uint64
}

// TotalDropped sums DroppedTotal
func (s Snapshot) TotalDropped() uint64 {
	var total uint64
	for _, n := range s.DroppedTotal {
		total += n
	}
	return total
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	dropped := make(map[core.Level]uint64, len(core.AllLevels))
	for _, l := range core.AllLevels {
		dropped[l] = s.GetDropped(l)
	}
	for i := range s.dropped {
		if n := s.dropped[i].Load(); n > 0 {
			dropped[core.Level(int8(uint8(i)))] = n
		}
	}
	return Snapshot{
		DroppedTotal:   dropped,
		BlockedTotal:   s.GetBlocked(),
		ProcessedTotal: s.GetProcessed(),
	}
}
