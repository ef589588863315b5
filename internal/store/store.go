// Package store persists client-local state: the session token pair and
// the location spool. State lives in a single SQLite database under the
// configured state directory.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	dbFileName  = "state.db"
	keyFileName = "store.key"
)

// Store wraps the local SQLite database
type Store struct {
	db     *sqlx.DB
	cipher *valueCipher
}

// Open opens (creating if needed) the local state database in dir
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite", filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// Single writer context; no need for a connection pool
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cipher, err := loadValueCipher(filepath.Join(dir, keyFileName))
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, cipher: cipher}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS session (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS location_spool (
		id         TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_spool_created ON location_spool(created_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate state database: %w", err)
	}
	return nil
}
