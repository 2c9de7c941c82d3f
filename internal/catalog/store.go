package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"reelcat/internal/config"
)

// Store manages catalog persistence backed by SQLite. It is the exclusive
// owner of all indexing state: contents, locations, annotations, and the
// derived search index. All mutating operations commit atomically; partial
// writes are never observable by concurrent readers.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the catalog database at an explicit location.
//
// Pragmas ride the connection string so every pooled connection gets them;
// a plain Exec would configure only the one connection that ran it, leaving
// the rest of the pool without busy_timeout or foreign_keys. _txlock makes
// write transactions take their lock up front instead of failing the
// deferred read-to-write upgrade under contention.
func OpenPath(dbPath string) (*Store, error) {
	dsn := dbPath + "?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(10000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}
