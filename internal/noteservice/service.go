// Package noteservice coordinates the corpus file, the in-memory engine, the
// query catalog and rebuild notifications.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/zettelnav/internal/address"
	"github.com/starford/zettelnav/internal/apperr"
	"github.com/starford/zettelnav/internal/catalog"
	"github.com/starford/zettelnav/internal/checksum"
	"github.com/starford/zettelnav/internal/engine"
	"github.com/starford/zettelnav/internal/metrics"
	"github.com/starford/zettelnav/internal/models"
	"github.com/starford/zettelnav/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Line        int               `json:"line"`
	Declaration string            `json:"declaration"`
	Links       []address.Address `json:"links"`
	Backlinks   []string          `json:"backlinks"`
	// ReferencedBy also counts links that name the note through a path.
	ReferencedBy []string `json:"referenced_by"`
}

// RebuildResult summarizes one successful rebuild.
type RebuildResult struct {
	Notes    int           `json:"notes"`
	Links    int           `json:"links"`
	Checksum string        `json:"checksum"`
	Duration time.Duration `json:"duration"`
}

// RebuildHook is called after every rebuild attempt. Exactly one of res and
// err is meaningful.
type RebuildHook func(res RebuildResult, err error)

// Service coordinates storage, engine and catalog operations.
type Service struct {
	engine  *engine.Engine
	catalog catalog.Catalog
	store   storage.Provider
	corpus  string
	metrics *metrics.Metrics
	logger  *slog.Logger
	hook    RebuildHook

	mu sync.RWMutex // serializes rebuilds; readers spanning engine and catalog hold it shared

	// Fingerprint and outcome of the last rebuild attempt whose result
	// depends only on the content.
	attempted bool
	lastFP    uint64
	lastErr   error

	writeMu sync.Mutex // serializes If-Match check and write
}

// Option configures a Service.
type Option func(*Service)

// WithCorpus binds the service to a corpus file inside store.
func WithCorpus(store storage.Provider, path string) Option {
	return func(s *Service) {
		s.store = store
		s.corpus = path
	}
}

// WithMetrics records rebuilds and jumps on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRebuildHook registers a rebuild callback.
func WithRebuildHook(h RebuildHook) Option {
	return func(s *Service) { s.hook = h }
}

// NewService creates a new note service.
func NewService(eng *engine.Engine, cat catalog.Catalog, opts ...Option) *Service {
	s := &Service{engine: eng, catalog: cat, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Rebuild replaces the index with one built from content.
func (s *Service) Rebuild(_ context.Context, content string) (RebuildResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(content)
}

func (s *Service) rebuildLocked(content string) (RebuildResult, error) {
	start := time.Now()
	fp := checksum.Fingerprint([]byte(content))

	ix, err := engine.Build(content)
	if err != nil {
		s.attempted, s.lastFP, s.lastErr = true, fp, err
		return RebuildResult{}, s.fail("rebuild: failed", start, err)
	}
	// The catalog goes first so a refresh failure leaves the engine and the
	// catalog on the same generation.
	counts, err := s.catalog.Replace(ix.Notes())
	if err != nil {
		return RebuildResult{}, s.fail("rebuild: catalog refresh failed", start,
			fmt.Errorf("noteservice: refresh catalog: %w", err))
	}
	s.engine.Publish(ix)
	s.attempted, s.lastFP, s.lastErr = true, fp, nil

	res := RebuildResult{
		Notes:    counts.Notes,
		Links:    counts.Links,
		Checksum: checksum.Sum([]byte(content)),
		Duration: time.Since(start),
	}
	s.observeRebuild(metrics.OutcomeOK, res.Duration)
	if s.metrics != nil {
		s.metrics.SetIndexSize(res.Notes, res.Links)
	}
	s.logger.Debug("rebuild: done",
		slog.Int("notes", res.Notes),
		slog.Int("links", res.Links),
		slog.Duration("took", res.Duration))
	s.notify(res, nil)
	return res, nil
}

func (s *Service) fail(msg string, start time.Time, err error) error {
	s.logger.Warn(msg, slog.String("error", err.Error()))
	s.observeRebuild(metrics.OutcomeFailed, time.Since(start))
	s.notify(RebuildResult{}, err)
	return err
}

// Reload reads the corpus file and rebuilds when its content differs from
// the last attempt. changed reports whether a rebuild ran. Content that
// already failed to index returns the same error again without a new
// attempt or notification.
func (s *Service) Reload(_ context.Context) (res RebuildResult, changed bool, err error) {
	data, err := s.readCorpus()
	if err != nil {
		return RebuildResult{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempted && checksum.Fingerprint(data) == s.lastFP {
		s.observeRebuild(metrics.OutcomeUnchanged, 0)
		return RebuildResult{}, false, s.lastErr
	}
	res, err = s.rebuildLocked(string(data))
	return res, err == nil, err
}

// Corpus returns the corpus file content and its checksum.
func (s *Service) Corpus(_ context.Context) ([]byte, string, error) {
	data, err := s.readCorpus()
	if err != nil {
		return nil, "", err
	}
	return data, checksum.Sum(data), nil
}

// SaveCorpus writes content with optimistic concurrency and rebuilds from it.
// An empty ifMatch skips the check. The file is written even when the new
// content fails to index; the previous index then stays current.
func (s *Service) SaveCorpus(_ context.Context, content []byte, ifMatch string) (RebuildResult, error) {
	if s.store == nil {
		return RebuildResult{}, apperr.ErrNotFound
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if ifMatch != "" {
		existing, err := s.readCorpus()
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return RebuildResult{}, err
		}
		if ifMatch != checksum.Sum(existing) {
			return RebuildResult{}, apperr.ErrConflict
		}
	}
	// Held across write and rebuild so a watcher reload of the new file
	// sees this attempt.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Write(s.corpus, content); err != nil {
		return RebuildResult{}, err
	}
	return s.rebuildLocked(string(content))
}

func (s *Service) readCorpus() ([]byte, error) {
	if s.store == nil {
		return nil, apperr.ErrNotFound
	}
	data, err := s.store.Read(s.corpus)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Jump resolves a cursor against the current index.
func (s *Service) Jump(_ context.Context, req models.JumpRequest) (models.Target, error) {
	t, err := s.engine.Resolve(req)
	if s.metrics != nil {
		if err != nil {
			s.metrics.ObserveJump(apperr.Kind(err))
		} else {
			s.metrics.ObserveJump(t.Kind.String())
		}
	}
	return t, err
}

// GetNote returns a note with its declaration line and backlinks.
func (s *Service) GetNote(_ context.Context, id string) (*NoteDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.engine.Lookup(id)
	if !ok {
		return nil, &apperr.MissingNoteError{ID: id}
	}
	refs, err := s.catalog.Backlinks(id)
	if err != nil {
		return nil, err
	}
	n := entry.Note
	return &NoteDetail{
		ID:           n.ID,
		Title:        n.Title,
		Line:         n.Line,
		Declaration:  entry.Declaration,
		Links:        nonNilSlice(n.Links),
		Backlinks:    nonNilSlice(entry.Backlinks),
		ReferencedBy: nonNilSlice(refs),
	}, nil
}

// ListNotes returns every note in declaration order.
func (s *Service) ListNotes(_ context.Context) []models.Note {
	return nonNilSlice(s.engine.Notes())
}

// Backlinks parses raw as a link address and returns the ids of notes
// containing a link to it. The text slot of raw is ignored.
func (s *Service) Backlinks(_ context.Context, raw string) ([]string, error) {
	addr, err := address.Parse(raw)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(s.engine.Backlinks(addr)), nil
}

// Search delegates title search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	res, err := s.catalog.Search(query, limit)
	return nonNilSlice(res), err
}

// Graph returns all nodes and edges for graph visualization.
func (s *Service) Graph(_ context.Context) ([]catalog.GraphNode, []catalog.GraphEdge, error) {
	nodes, edges, err := s.catalog.Graph()
	return nonNilSlice(nodes), nonNilSlice(edges), err
}

func (s *Service) observeRebuild(outcome string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveRebuild(outcome, d)
	}
}

func (s *Service) notify(res RebuildResult, err error) {
	if s.hook != nil {
		s.hook(res, err)
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
