// Package engine holds the in-memory note graph and resolves editor cursors
// against it. An Engine is a caller-owned handle: Rebuild replaces the whole
// index from corpus text, Resolve answers cursor queries against the most
// recent successful rebuild.
package engine

import (
	"sort"
	"sync/atomic"

	"github.com/starford/zettelnav/internal/address"
	"github.com/starford/zettelnav/internal/models"
)

// snapshot is one immutable index generation. Notes, backlinks and lines
// are always published together.
type snapshot struct {
	notes     map[string]*models.Note
	backlinks map[address.Address][]string
	lines     []string
}

var emptySnapshot = &snapshot{
	notes:     map[string]*models.Note{},
	backlinks: map[address.Address][]string{},
}

// Engine is the note indexer and cursor resolver.
type Engine struct {
	state atomic.Pointer[snapshot]
}

// New returns an Engine with an empty index.
func New() *Engine {
	e := &Engine{}
	e.state.Store(emptySnapshot)
	return e
}

func (e *Engine) current() *snapshot {
	if s := e.state.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

// Index is a built index generation that readers cannot see until it is
// published.
type Index struct {
	s *snapshot
}

// Build indexes content without touching any engine.
func Build(content string) (*Index, error) {
	s, err := build(content)
	if err != nil {
		return nil, err
	}
	return &Index{s: s}, nil
}

// Notes returns the built notes ordered by declaration line.
func (ix *Index) Notes() []models.Note { return ix.s.sortedNotes() }

// Publish makes ix the index every later read sees.
func (e *Engine) Publish(ix *Index) {
	e.state.Store(ix.s)
}

// Rebuild replaces the entire index from content. On error the previous
// index stays in place.
func (e *Engine) Rebuild(content string) error {
	ix, err := Build(content)
	if err != nil {
		return err
	}
	e.Publish(ix)
	return nil
}

// Note returns a copy of the note with the given id.
func (e *Engine) Note(id string) (models.Note, bool) {
	n, ok := e.current().notes[id]
	if !ok {
		return models.Note{}, false
	}
	return copyNote(n), true
}

// NoteEntry is a note with its declaration text and backlinks, all read
// from one index generation.
type NoteEntry struct {
	Note        models.Note
	Declaration string
	Backlinks   []string
}

// Lookup returns the entry for id.
func (e *Engine) Lookup(id string) (NoteEntry, bool) {
	s := e.current()
	n, ok := s.notes[id]
	if !ok {
		return NoteEntry{}, false
	}
	entry := NoteEntry{Note: copyNote(n)}
	if n.Line < len(s.lines) {
		entry.Declaration = s.lines[n.Line]
	}
	entry.Backlinks = append([]string{}, s.backlinks[address.Address{Note: address.Some(id)}]...)
	return entry, true
}

// Notes returns every note ordered by declaration line.
func (e *Engine) Notes() []models.Note {
	return e.current().sortedNotes()
}

func (s *snapshot) sortedNotes() []models.Note {
	out := make([]models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, copyNote(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Backlinks returns the ids of notes linking to addr. The text slot of addr
// is ignored. Ids repeat once per link.
func (e *Engine) Backlinks(addr address.Address) []string {
	ids := e.current().backlinks[addr.WithoutText()]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// AllBacklinks returns a copy of the whole backlink map.
func (e *Engine) AllBacklinks() map[address.Address][]string {
	s := e.current()
	out := make(map[address.Address][]string, len(s.backlinks))
	for k, v := range s.backlinks {
		ids := make([]string, len(v))
		copy(ids, v)
		out[k] = ids
	}
	return out
}

// LineCount returns the number of cached content lines.
func (e *Engine) LineCount() int {
	return len(e.current().lines)
}

func copyNote(n *models.Note) models.Note {
	c := *n
	c.Links = make([]address.Address, len(n.Links))
	copy(c.Links, n.Links)
	return c
}
