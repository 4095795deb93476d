//go:build sqlite_fts5

package catalog

import (
	"testing"

	"github.com/starford/zettelnav/internal/address"
	"github.com/starford/zettelnav/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count); err != nil {
		t.Fatalf("notes_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	notes := []models.Note{{ID: "fts", Title: "Powerful full-text search", Links: []address.Address{}}}
	if _, err := db.Replace(notes); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "fts" {
		t.Errorf("id = %q", results[0].ID)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_ReplaceClearsFTS(t *testing.T) {
	db := testDB(t)
	_, _ = db.Replace([]models.Note{{ID: "gone", Title: "vanishing", Links: []address.Address{}}})
	_, _ = db.Replace(nil)

	results, _ := db.Search("vanishing", 10)
	if len(results) != 0 {
		t.Errorf("expected 0 results after replace, got %d", len(results))
	}
}
