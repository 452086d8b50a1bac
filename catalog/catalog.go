// Package catalog keeps a small sqlite index of recordings this machine has
// seen and what processing they have been through. It exists so repeated
// batch runs over large directories can report state without re-globbing
// MPS output trees.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Catalog wraps the sqlite session index.
type Catalog struct {
	*sql.DB
}

// Entry is one recording known to the catalog.
type Entry struct {
	Path         string
	SizeBytes    int64
	MPSState     string // "", "processed", "failed", "timed_out"
	ExtractState string // "", "extracted"
	FirstSeen    time.Time
	UpdatedAt    time.Time
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			path TEXT PRIMARY KEY,
			size_bytes BIGINT,
			mps_state TEXT DEFAULT '',
			extract_state TEXT DEFAULT '',
			first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	return &Catalog{db}, nil
}

// Observe records that a recording was seen, inserting it on first sight and
// refreshing its size otherwise.
func (c *Catalog) Observe(path string, sizeBytes int64) error {
	_, err := c.Exec(`
		INSERT INTO sessions (path, size_bytes) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size_bytes = excluded.size_bytes,
			updated_at = CURRENT_TIMESTAMP
	`, path, sizeBytes)
	return err
}

// SetMPSState updates the MPS processing state for a recording.
func (c *Catalog) SetMPSState(path, state string) error {
	return c.setState(path, "mps_state", state)
}

// SetExtractState updates the frame extraction state for a recording.
func (c *Catalog) SetExtractState(path, state string) error {
	return c.setState(path, "extract_state", state)
}

func (c *Catalog) setState(path, column, state string) error {
	// column is one of two compile-time constants, never user input
	res, err := c.Exec(fmt.Sprintf(`
		UPDATE sessions SET %s = ?, updated_at = CURRENT_TIMESTAMP WHERE path = ?
	`, column), state, path)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("recording %s not in catalog", path)
	}
	return nil
}

// List returns all catalog entries ordered by path.
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.Query(`
		SELECT path, size_bytes, mps_state, extract_state, first_seen, updated_at
		FROM sessions ORDER BY path
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.SizeBytes, &e.MPSState, &e.ExtractState, &e.FirstSeen, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Get returns one entry by path.
func (c *Catalog) Get(path string) (*Entry, error) {
	row := c.QueryRow(`
		SELECT path, size_bytes, mps_state, extract_state, first_seen, updated_at
		FROM sessions WHERE path = ?
	`, path)

	var e Entry
	if err := row.Scan(&e.Path, &e.SizeBytes, &e.MPSState, &e.ExtractState, &e.FirstSeen, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("recording %s not in catalog", path)
		}
		return nil, err
	}

	return &e, nil
}
