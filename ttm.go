// Package ttm is the public, embeddable surface of the taxonomy time
// machine: opening a store, running ingestion, and querying it, without
// requiring callers to reach into internal/ directly. Mirrors the
// teacher's own root-package re-export pattern for library consumers.
package ttm

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/onecodex/taxonomy-time-machine/internal/ingest"
	"github.com/onecodex/taxonomy-time-machine/internal/query"
	"github.com/onecodex/taxonomy-time-machine/internal/storage"
	"github.com/onecodex/taxonomy-time-machine/internal/storage/sqlite"
	"github.com/onecodex/taxonomy-time-machine/internal/taxdump"
	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

type (
	// TaxID, Event, Node, and the sentinel errors are re-exported so
	// embedders never need to import internal/types directly.
	TaxID = types.TaxID
	Event = types.Event
	Node  = types.Node

	// Engine is the temporal query engine: GetEvents, GetLineage,
	// GetChildren, GetVersions, SearchNames, RandomSpecies.
	Engine = query.Engine

	// Ingester is the differential ingester.
	Ingester = ingest.Ingester

	// Storage is the durable event store contract.
	Storage = storage.Storage
)

var (
	ErrNotFound       = types.ErrNotFound
	ErrMalformedInput = types.ErrMalformedInput
	ErrStorageError   = types.ErrStorageError
	ErrFTSParseError  = types.ErrFTSParseError
	ErrIngestError    = types.ErrIngestError
)

// Open opens (or creates) the event store at path and returns both the
// store and a query engine layered over it — the entry point most
// embedders want.
func Open(ctx context.Context, path string) (Storage, *Engine, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving database path %s: %w", path, err)
	}
	store, err := sqlite.New(ctx, abs)
	if err != nil {
		return nil, nil, err
	}
	return store, query.New(store), nil
}

// NewIngester builds a differential ingester over an already-open store.
func NewIngester(ctx context.Context, store Storage) (*Ingester, error) {
	return ingest.New(ctx, store)
}

// LoadSnapshot loads one taxdump directory for ingestion.
func LoadSnapshot(dir string) (*taxdump.Reader, error) {
	return taxdump.Load(dir)
}
