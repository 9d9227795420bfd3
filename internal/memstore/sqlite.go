package memstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStore keeps named documents as rows in a single documents table.
// Same contract as FileStore; useful where many processes share one data
// directory and atomic single-file replaces get racy.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) <dataDir>/memstore.db with WAL
// mode and busy-timeout pragmas, and runs the schema migration.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("memstore: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dataDir, "memstore.db"))
	if err != nil {
		return nil, fmt.Errorf("memstore: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("memstore: pragma %q: %w", p, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			name       TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("memstore: migration: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Read implements Store. A missing row or unparsable payload leaves v as
// the caller's default.
func (s *SQLiteStore) Read(name string, v any) error {
	var data string
	err := s.db.QueryRow(`SELECT data FROM documents WHERE name = ?`, name).Scan(&data)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return nil
	}
	return nil
}

// Write implements Store.
func (s *SQLiteStore) Write(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("memstore: marshal %s: %w", name, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO documents (name, data, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		name, string(data),
	)
	if err != nil {
		return fmt.Errorf("memstore: write %s: %w", name, err)
	}
	return nil
}
