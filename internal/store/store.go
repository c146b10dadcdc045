// Package store provides SQLite-backed storage for a slide library.
//
// One database file lives at the root of each project folder and holds all
// relational tables plus the FTS5 text indexes. Every mutating call runs
// inside a transaction; failures roll back and surface a typed error.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

// DataFileName is the database file kept at a project root.
const DataFileName = "library.db"

// Store wraps a SQLite connection for slide-library storage.
type Store struct {
	conn *sql.DB
	path string
}

// OpenProject opens or creates the database inside a project root folder.
func OpenProject(root string) (*Store, error) {
	return Open(filepath.Join(root, DataFileName))
}

// Open opens a database at the given path.
func Open(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Pragmas are per-connection. A single connection keeps them in force
	// and avoids writer contention; concurrent pipeline tasks open their
	// own Store instead of sharing this one.
	conn.SetMaxOpenConns(1)

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{conn: conn, path: dbPath}, nil
}

// Path returns the database file path, for opening per-task connections.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("%s: beginning transaction: %w", op, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return wrapStorage(op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: committing: %w", op, err)
	}
	return nil
}

// NowMs returns current Unix milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}
