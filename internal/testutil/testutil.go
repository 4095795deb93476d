// Package testutil provides shared test helpers for setting up corpus directories and catalogs.
package testutil

import (
	"log/slog"
	"testing"

	"github.com/starford/zettelnav/internal/catalog"
	"github.com/starford/zettelnav/internal/storage"
)

// SampleCorpus holds two notes, the second linking back to the first.
const SampleCorpus = "# asdf - This is a sample note\n\nSome text\n\n# ghjk - Second note\n\nThis [links](@asdf) to first one"

// TestCatalog opens an in-memory catalog that is closed on cleanup.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	db, err := catalog.Open()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// CorpusDir creates an empty temporary corpus directory.
func CorpusDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// CorpusDirWith creates a corpus directory holding content at path.
func CorpusDirWith(t *testing.T, path, content string) (string, *storage.FS) {
	t.Helper()
	dir, store := CorpusDir(t)
	if err := store.Write(path, []byte(content)); err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger returns a logger that drops everything.
func Logger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
