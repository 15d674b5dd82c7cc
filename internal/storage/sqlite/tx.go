package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onecodex/taxonomy-time-machine/internal/storage"
	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// tx wraps one snapshot's registration and event batch in a single SQLite
// transaction: AppendEvents and RegisterSnapshot both write through tx.sqlTx,
// and neither is durable until Commit succeeds. This is how invariant I5
// (resumable, crash-safe ingestion) is actually enforced — a crash between
// the two calls leaves the whole transaction rolled back, so the next
// ingestion run sees the snapshot as unseen and safely redoes it.
type tx struct {
	sqlTx *sql.Tx
}

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", types.ErrStorageError, err)
	}
	return &tx{sqlTx: sqlTx}, nil
}

func (t *tx) RegisterSnapshot(ctx context.Context, src types.SnapshotSource) (int64, error) {
	res, err := t.sqlTx.ExecContext(ctx,
		`INSERT INTO taxonomy_source (path, version_date) VALUES (?, ?)`,
		src.Path, src.VersionDate,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: registering snapshot %s: %v", types.ErrStorageError, src.Path, err)
	}
	return res.LastInsertId()
}

func (t *tx) AppendEvents(ctx context.Context, events []types.Event) error {
	const stmt = `INSERT INTO events (source_id, event_kind, tax_id, parent_id, rank, name, version_date)
	              VALUES (?, ?, ?, ?, ?, ?, ?)`

	prepared, err := t.sqlTx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("%w: preparing event insert: %v", types.ErrStorageError, err)
	}
	defer prepared.Close()

	for _, e := range events {
		var parentID, rank, name any
		if e.ParentID != nil {
			parentID = string(*e.ParentID)
		}
		if e.Rank != nil {
			rank = *e.Rank
		}
		if e.Name != nil {
			name = *e.Name
		}
		if _, err := prepared.ExecContext(ctx, e.SourceID, string(e.Kind), string(e.TaxID), parentID, rank, name, e.VersionDate); err != nil {
			return fmt.Errorf("%w: inserting event for tax_id=%s: %v", types.ErrStorageError, e.TaxID, err)
		}
	}

	// bump the cache-generation counter so the query engine's LRU drops
	// everything it cached before this batch landed.
	if _, err := t.sqlTx.ExecContext(ctx,
		`UPDATE metadata SET value = CAST(value AS INTEGER) + 1 WHERE key = ?`, cacheGenerationKey,
	); err != nil {
		return fmt.Errorf("%w: bumping cache generation: %v", types.ErrStorageError, err)
	}

	return nil
}

func (t *tx) Commit() error {
	return t.sqlTx.Commit()
}

func (t *tx) Rollback() error {
	return t.sqlTx.Rollback()
}
