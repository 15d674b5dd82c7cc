// Package storage defines the durable event store contract used by the
// ingester and the query engine. The only implementation shipped here is
// internal/storage/sqlite, but query/ingest code against this interface so
// an alternate backend never has to touch either of them.
package storage

import (
	"context"
	"iter"
	"time"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// Config mirrors the teacher's storage.Config shape, trimmed to the one
// backend this repo actually ships: a SQLite file path.
type Config struct {
	Path string
}

// Transaction groups a snapshot registration with the event batch it
// produced so the two commit or fail together (invariant I5: a crash
// mid-ingest never leaves a snapshot marked seen without its events, or
// vice versa).
type Transaction interface {
	AppendEvents(ctx context.Context, events []types.Event) error
	RegisterSnapshot(ctx context.Context, src types.SnapshotSource) (int64, error)
	Commit() error
	Rollback() error
}

// Storage is the full event-store contract: append-only writes (always
// inside a Transaction), and the read paths the query engine and ingester
// need.
type Storage interface {
	// BeginTx starts a transaction wrapping one snapshot's ingestion.
	BeginTx(ctx context.Context) (Transaction, error)

	// SnapshotSeen reports whether a snapshot at this path has already been
	// registered, so ingestion can skip it.
	SnapshotSeen(ctx context.Context, path string) (bool, error)

	// EventsByTaxID returns every event recorded for a tax ID, oldest first.
	EventsByTaxID(ctx context.Context, id types.TaxID) ([]types.Event, error)

	// EventsByParentID returns every event recorded with the given parent,
	// across all tax IDs and dates, used by GetChildren's candidate pass.
	EventsByParentID(ctx context.Context, parent types.TaxID) ([]types.Event, error)

	// MostRecentEventAsOf returns the latest event for a tax ID with
	// version_date <= asOf, or types.ErrNotFound if none exists.
	MostRecentEventAsOf(ctx context.Context, id types.TaxID, asOf time.Time) (types.Event, error)

	// DistinctVersionDates returns every version_date at which id has an
	// event, ascending.
	DistinctVersionDates(ctx context.Context, id types.TaxID) ([]time.Time, error)

	// IterMostRecentEvents yields the single most-recent event per tax ID
	// across the whole log — the state the differential ingester rebuilds
	// on startup to resume cleanly.
	IterMostRecentEvents(ctx context.Context) iter.Seq2[types.Event, error]

	// SearchExact looks up a tax ID directly when the query is numeric.
	SearchExact(ctx context.Context, id types.TaxID) ([]types.Event, error)

	// SearchFTS runs a full-text query (prefix or phrase, see
	// internal/query) against indexed names and returns every matching
	// event row (several per tax ID are possible), shortest name first,
	// newest first within equal name length.
	SearchFTS(ctx context.Context, ftsQuery string, limit int) ([]types.Event, error)

	// RandomSpecies returns a uniformly random row (by offset) among all
	// events ever recorded with rank="species".
	RandomSpecies(ctx context.Context) (types.Event, error)

	// CacheGeneration returns a counter bumped by every successful
	// ingestion, used by the query engine to invalidate its LRU cache.
	CacheGeneration(ctx context.Context) (int64, error)

	Close() error
}
