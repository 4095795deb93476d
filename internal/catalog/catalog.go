package catalog

import "github.com/starford/zettelnav/internal/models"

// Catalog is the query surface over the last successful index.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type Catalog interface {
	Replace(notes []models.Note) (Counts, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphEdge, error)
	Backlinks(id string) ([]string, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
