package catalog

import (
	"database/sql"
	"fmt"

	"github.com/starford/zettelnav/internal/address"
	"github.com/starford/zettelnav/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

// GraphNode is a note, or a referenced id with no declaration.
type GraphNode struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

// GraphEdge is one note-to-note link.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Counts is the size of the mirrored index.
type Counts struct {
	Notes int
	Links int
}

// Replace swaps the whole catalog content for notes within one transaction
// and returns the resulting row counts. On error the previous content stays.
func (db *DB) Replace(notes []models.Note) (Counts, error) {
	var c Counts
	tx, err := db.conn.Begin()
	if err != nil {
		return c, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return c, fmt.Errorf("catalog: clear links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes`); err != nil {
		return c, fmt.Errorf("catalog: clear notes: %w", err)
	}
	if err := ftsReset(tx); err != nil {
		return c, err
	}

	noteStmt, err := tx.Prepare(`INSERT INTO notes (id, title, line) VALUES (?, ?, ?)`)
	if err != nil {
		return c, fmt.Errorf("catalog: prepare note insert: %w", err)
	}
	defer noteStmt.Close()
	linkStmt, err := tx.Prepare(`INSERT INTO links (source, position, path, note, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return c, fmt.Errorf("catalog: prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for _, n := range notes {
		if _, err := noteStmt.Exec(n.ID, n.Title, n.Line); err != nil {
			return c, fmt.Errorf("catalog: insert note %s: %w", n.ID, err)
		}
		if err := ftsInsert(tx, n.ID, n.Title); err != nil {
			return c, err
		}
		for i, l := range n.Links {
			if _, err := linkStmt.Exec(n.ID, i, nullable(l.Path), nullable(l.Note), nullable(l.Text)); err != nil {
				return c, fmt.Errorf("catalog: insert link: %w", err)
			}
		}
	}

	if err := tx.QueryRow(countsQuery).Scan(&c.Notes, &c.Links); err != nil {
		return Counts{}, fmt.Errorf("catalog: counts: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Counts{}, fmt.Errorf("catalog: commit: %w", err)
	}
	return c, nil
}

func nullable(s address.Slot) sql.NullString {
	v, ok := s.Get()
	return sql.NullString{String: v, Valid: ok}
}

// Backlinks returns the ids of notes linking to id through any address that
// names it, in declaration order. Duplicates are kept.
func (db *DB) Backlinks(id string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT l.source
		FROM links l JOIN notes n ON n.id = l.source
		WHERE l.note = ?
		ORDER BY n.line, l.position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Graph returns every note plus each referenced-but-undeclared id as nodes,
// and one distinct edge per linked note pair.
func (db *DB) Graph() ([]GraphNode, []GraphEdge, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, 0 FROM notes
		UNION
		SELECT DISTINCT note, '', 1 FROM links
		WHERE note IS NOT NULL AND note NOT IN (SELECT id FROM notes)
		ORDER BY 1
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: graph nodes: %w", err)
	}
	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Title, &n.Missing); err != nil {
			rows.Close()
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = db.conn.Query(`
		SELECT DISTINCT source, note FROM links
		WHERE note IS NOT NULL
		ORDER BY source, note
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: graph edges: %w", err)
	}
	defer rows.Close()
	var edges []GraphEdge
	for rows.Next() {
		var e GraphEdge
		if err := rows.Scan(&e.Source, &e.Target); err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}
	return nodes, edges, rows.Err()
}

const countsQuery = `SELECT (SELECT count(*) FROM notes), (SELECT count(*) FROM links)`
