package catalog

import (
	"reflect"
	"testing"

	"github.com/starford/zettelnav/internal/address"
	"github.com/starford/zettelnav/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func noteLink(id string) address.Address {
	return address.Address{Note: address.Some(id)}
}

var sampleNotes = []models.Note{
	{ID: "asdf", Title: "This is a sample note", Line: 0, Links: []address.Address{}},
	{ID: "ghjk", Title: "Second note", Line: 4, Links: []address.Address{
		noteLink("asdf"),
		{Path: address.Some("x.md"), Note: address.Some("asdf"), Text: address.Some("t")},
		noteLink("ghost"),
		{Path: address.Some("other.md")},
	}},
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestReplaceAndCounts(t *testing.T) {
	db := testDB(t)
	c, err := db.Replace(sampleNotes)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if c != (Counts{Notes: 2, Links: 4}) {
		t.Errorf("counts = %+v, want 2 notes and 4 links", c)
	}

	c, err = db.Replace([]models.Note{{ID: "only", Title: "Only", Links: []address.Address{}}})
	if err != nil {
		t.Fatalf("second Replace: %v", err)
	}
	if c != (Counts{Notes: 1, Links: 0}) {
		t.Errorf("counts after replace = %+v, want 1/0", c)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_, _ = db.Replace(sampleNotes)

	bl, err := db.Backlinks("asdf")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	// Both the bare and the path-qualified link count.
	if !reflect.DeepEqual(bl, []string{"ghjk", "ghjk"}) {
		t.Errorf("backlinks = %v", bl)
	}

	bl, _ = db.Backlinks("nobody")
	if len(bl) != 0 {
		t.Errorf("expected no backlinks, got %v", bl)
	}
}

func TestGraph(t *testing.T) {
	db := testDB(t)
	_, _ = db.Replace(sampleNotes)

	nodes, edges, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	wantNodes := []GraphNode{
		{ID: "asdf", Title: "This is a sample note"},
		{ID: "ghjk", Title: "Second note"},
		{ID: "ghost", Missing: true},
	}
	if !reflect.DeepEqual(nodes, wantNodes) {
		t.Errorf("nodes = %+v, want %+v", nodes, wantNodes)
	}
	wantEdges := []GraphEdge{{Source: "ghjk", Target: "asdf"}, {Source: "ghjk", Target: "ghost"}}
	if !reflect.DeepEqual(edges, wantEdges) {
		t.Errorf("edges = %+v, want %+v", edges, wantEdges)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_, _ = db.Replace(sampleNotes)

	results, err := db.Search("sample", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "asdf" || results[0].Line != 0 {
		t.Errorf("search results = %+v, want 1 hit for asdf", results)
	}
}

func TestSearch_EmptyCatalog(t *testing.T) {
	db := testDB(t)
	results, err := db.Search("anything", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v", results)
	}
}
