// Package ids maintains the run-scoped mapping from note title to the
// identifier recorded in its converted Org file.
package ids

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Entry is one title → identifier mapping.
type Entry struct {
	Title string `json:"title"`
	ID    string `json:"id"`
	// Path is the owning output file, relative to the output root.
	Path string `json:"path"`
}

// Index maps note titles to identifiers. A title maps to at most one
// identifier and the first path to claim a title keeps it. Paths that lose
// a title to an earlier owner are kept aside so their identifiers stay
// stable, but links never resolve to them.
//
// The index is safe for concurrent use: watch mode, the HTTP API, and the
// MCP server read it while conversions extend it.
type Index struct {
	mu      sync.RWMutex
	entries map[string]Entry
	// shadowed holds colliding entries keyed by path.
	shadowed map[string]Entry
	newID    func() string
}

// Option configures an Index.
type Option func(*Index)

// WithGenerator overrides the identifier generator.
func WithGenerator(fn func() string) Option {
	return func(x *Index) {
		x.newID = fn
	}
}

// NewID returns a fresh random (version 4) UUID string.
func NewID() string {
	return uuid.NewString()
}

// New creates an empty Index.
func New(opts ...Option) *Index {
	x := &Index{
		entries:  make(map[string]Entry),
		shadowed: make(map[string]Entry),
		newID:    NewID,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Lookup returns the identifier recorded for title.
func (x *Index) Lookup(title string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.entries[title]
	return e.ID, ok
}

// Get returns the full entry recorded for title.
func (x *Index) Get(title string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.entries[title]
	return e, ok
}

// ByPath returns the entry recorded for the output file at path, whether
// it owns its title or lost it to another path.
func (x *Index) ByPath(path string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if e, ok := x.shadowed[path]; ok {
		return e, true
	}
	for _, e := range x.entries {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Assign picks the identifier for the output file at path. An identifier
// already recorded for path under the same title is reused; otherwise a
// fresh one is minted. collision is true when title is owned by a
// different path.
func (x *Index) Assign(title, path string) (id string, collision bool) {
	x.mu.RLock()
	owner, owned := x.entries[title]
	shadow, shadowed := x.shadowed[path]
	x.mu.RUnlock()

	switch {
	case owned && owner.Path == path:
		return owner.ID, false
	case shadowed && shadow.Title == title:
		return shadow.ID, owned
	}
	return x.newID(), owned
}

// Record adds e to the index. It returns false when the title is already
// owned by a different path; e is then kept aside for ByPath only.
func (x *Index) Record(e Entry) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if cur, ok := x.entries[e.Title]; ok && cur.Path != e.Path {
		x.shadowed[e.Path] = e
		return false
	}
	delete(x.shadowed, e.Path)
	x.entries[e.Title] = e
	return true
}

// Forget removes the entry recorded for path, if any. When path owned its
// title, the colliding entry with the smallest path takes the title over.
func (x *Index) Forget(path string) (Entry, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if e, ok := x.shadowed[path]; ok {
		delete(x.shadowed, path)
		return e, true
	}
	for title, e := range x.entries {
		if e.Path != path {
			continue
		}
		delete(x.entries, title)
		var next Entry
		for _, s := range x.shadowed {
			if s.Title == title && (next.Path == "" || s.Path < next.Path) {
				next = s
			}
		}
		if next.Path != "" {
			delete(x.shadowed, next.Path)
			x.entries[title] = next
		}
		return e, true
	}
	return Entry{}, false
}

// Len returns the number of recorded titles.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Snapshot returns a copy of all entries sorted by title.
func (x *Index) Snapshot() []Entry {
	x.mu.RLock()
	out := make([]Entry, 0, len(x.entries))
	for _, e := range x.entries {
		out = append(out, e)
	}
	x.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}
