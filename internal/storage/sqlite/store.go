// Package sqlite is the durable event store backing internal/storage.Storage,
// built on the pure-Go github.com/ncruces/go-sqlite3 driver (wazero-based,
// no cgo) — the same driver and connection-setup style as the teacher's
// internal/storage/sqlite package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// Store implements storage.Storage over a single SQLite database file.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the database at path and brings it up
// to the current schema. path may be ":memory:" for tests.
func New(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", types.ErrStorageError, path, err)
	}
	db.SetMaxOpenConns(1) // single-writer; see spec §5 concurrency model

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging %s: %v", types.ErrStorageError, path, err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrating %s: %v", types.ErrStorageError, path, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SnapshotSeen(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM taxonomy_source WHERE path = ?`, path).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrStorageError, err)
	}
	return true, nil
}

func (s *Store) CacheGeneration(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, cacheGenerationKey).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("%w: reading cache generation: %v", types.ErrStorageError, err)
	}
	return v, nil
}
