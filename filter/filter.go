// Package filter provides the record predicates that decide which entries
// reach which sink.
//
// Every filter implements one capability, Evaluate, and is free of side
// effects: path comparisons lower-case a copy of the pathname and never
// touch the entry itself. Filters compose with All, Any and Not.
package filter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wobyy/wlogging/core"
)

// Filter decides whether an entry passes
type Filter interface {
	Evaluate(entry *core.Entry) bool
}

// Func adapts a plain function to the Filter interface
type Func func(entry *core.Entry) bool

// Evaluate calls f(entry)
func (f Func) Evaluate(entry *core.Entry) bool {
	return f(entry)
}

// ExcludeAnnounce passes everything except AnnounceLevel entries
var ExcludeAnnounce Filter = Func(func(entry *core.Entry) bool {
	return entry.Level != core.AnnounceLevel
})

// OnlyAnnounce passes AnnounceLevel entries only
var OnlyAnnounce Filter = Func(func(entry *core.Entry) bool {
	return entry.Level == core.AnnounceLevel
})

// DefaultKernelMarker identifies the embedded interactive kernel's sources
const DefaultKernelMarker = "ipykernel"

// DefaultVenvMarker identifies dependency sources installed in a virtual environment
const DefaultVenvMarker = ".venv"

// EmbeddedKernel passes entries whose pathname contains Marker
type EmbeddedKernel struct {
	// Marker is matched case-insensitively (default: ipykernel)
	Marker string
}

// Evaluate reports whether the entry originates in the embedded kernel
func (k EmbeddedKernel) Evaluate(entry *core.Entry) bool {
	marker := k.Marker
	if marker == "" {
		marker = DefaultKernelMarker
	}
	return strings.Contains(strings.ToLower(entry.Caller.File), strings.ToLower(marker))
}

// MatchMode selects how ProjectRoot compares a pathname to the root
type MatchMode int

const (
	// MatchBasename matches the root directory's final element anywhere in the
	// pathname, which survives symlinked or relocated checkouts
	MatchBasename MatchMode = iota
	// MatchFullPath matches the complete cleaned root directory
	MatchFullPath
)

// String returns the string representation of the mode
func (m MatchMode) String() string {
	switch m {
	case MatchBasename:
		return "basename"
	case MatchFullPath:
		return "fullpath"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (m MatchMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *MatchMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "basename", "":
		*m = MatchBasename
	case "fullpath", "full_path", "full-path":
		*m = MatchFullPath
	default:
		return fmt.Errorf("unknown match mode %q", text)
	}
	return nil
}

// ProjectRoot passes entries produced by the application's own source tree
type ProjectRoot struct {
	Root string
	Mode MatchMode
	// VenvMarker excludes dependency sources (default: .venv)
	VenvMarker string
}

// NewProjectRoot creates a basename-matching ProjectRoot filter
func NewProjectRoot(root string) *ProjectRoot {
	return &ProjectRoot{Root: root, Mode: MatchBasename, VenvMarker: DefaultVenvMarker}
}

// Evaluate reports whether the entry's pathname lies in the project and
// outside its virtual environment
func (p *ProjectRoot) Evaluate(entry *core.Entry) bool {
	needle := p.needle()
	if needle == "" {
		return false
	}
	path := strings.ToLower(filepath.ToSlash(entry.Caller.File))
	if !strings.Contains(path, needle) {
		return false
	}

	venv := p.VenvMarker
	if venv == "" {
		venv = DefaultVenvMarker
	}
	return !containsSegment(path, strings.ToLower(venv))
}

func (p *ProjectRoot) needle() string {
	root := filepath.Clean(p.Root)
	if p.Root == "" || root == "." {
		return ""
	}
	if p.Mode == MatchFullPath {
		return strings.ToLower(filepath.ToSlash(root))
	}
	base := filepath.Base(root)
	if base == "/" || base == "." {
		return ""
	}
	return strings.ToLower(base)
}

// containsSegment reports whether seg appears as a whole path element of a
// slash-separated path
func containsSegment(path, seg string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == seg {
			return true
		}
	}
	return false
}

// All passes when every filter passes. A nil filter counts as passing.
func All(filters ...Filter) Filter {
	return Func(func(entry *core.Entry) bool {
		for _, f := range filters {
			if f != nil && !f.Evaluate(entry) {
				return false
			}
		}
		return true
	})
}

// Any passes when at least one non-nil filter passes, or when none are given
func Any(filters ...Filter) Filter {
	return Func(func(entry *core.Entry) bool {
		seen := false
		for _, f := range filters {
			if f == nil {
				continue
			}
			seen = true
			if f.Evaluate(entry) {
				return true
			}
		}
		return !seen
	})
}

// Not inverts a filter
func Not(f Filter) Filter {
	return Func(func(entry *core.Entry) bool {
		return !f.Evaluate(entry)
	})
}
