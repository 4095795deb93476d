//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			id UNINDEXED,
			title,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsReset(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM notes_fts`); err != nil {
		return fmt.Errorf("catalog: clear fts: %w", err)
	}
	return nil
}

func ftsInsert(tx *sql.Tx, id, title string) error {
	if _, err := tx.Exec(`INSERT INTO notes_fts (id, title) VALUES (?, ?)`, id, title); err != nil {
		return fmt.Errorf("catalog: insert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search over note titles.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT notes_fts.id,
		       n.title,
		       n.line,
		       snippet(notes_fts, 1, '<b>', '</b>', '...', 16)
		FROM notes_fts JOIN notes n ON n.id = notes_fts.id
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Line, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
