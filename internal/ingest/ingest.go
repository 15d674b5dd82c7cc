// Package ingest implements the differential ingester: it turns an
// ordered sequence of taxonomy snapshots into a minimal append-only event
// log, diffing each snapshot against the last-known state of every taxon
// (spec §4.2).
package ingest

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/onecodex/taxonomy-time-machine/internal/storage"
	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// batchSize matches the original implementation's 10_000-row append
// batches (spec §4.2 step 6).
const batchSize = 10_000

// SnapshotReader is the external collaborator the ingester diffs against:
// an iterator over one snapshot's taxa plus random access by tax_id,
// matching the contract spec §6 describes for the (out-of-scope) parser.
type SnapshotReader interface {
	All() iter.Seq2[types.TaxID, types.Node]
	Lookup(id types.TaxID) (types.Node, bool)
}

// lastState is the ingester's per-tax "most recently seen, not deleted"
// view, rebuilt from the store on startup so runs are resumable (spec §3
// "Per-tax last known state map").
type lastState struct {
	parentID types.TaxID
	rank     string
	name     string
}

// Ingester diffs ordered snapshots against lastState and appends the
// resulting events to a Storage. It is not safe for concurrent use — see
// spec §5's single-writer model.
type Ingester struct {
	store           storage.Storage
	state           map[types.TaxID]lastState
	lastSnapshotIDs map[types.TaxID]bool
}

// New builds an Ingester, rebuilding lastState from the store's
// most-recent-event-per-tax_id scan so a fresh process can resume a
// partially completed ingestion run.
func New(ctx context.Context, store storage.Storage) (*Ingester, error) {
	ing := &Ingester{
		store:           store,
		state:           make(map[types.TaxID]lastState),
		lastSnapshotIDs: make(map[types.TaxID]bool),
	}

	for ev, err := range store.IterMostRecentEvents(ctx) {
		if err != nil {
			return nil, fmt.Errorf("rebuilding ingester state: %w", err)
		}
		if ev.Kind == types.EventDelete {
			continue
		}
		parent := types.TaxID("")
		if ev.ParentID != nil {
			parent = *ev.ParentID
		}
		rank, name := "", ""
		if ev.Rank != nil {
			rank = *ev.Rank
		}
		if ev.Name != nil {
			name = *ev.Name
		}
		ing.state[ev.TaxID] = lastState{parentID: parent, rank: rank, name: name}
		ing.lastSnapshotIDs[ev.TaxID] = true
	}

	return ing, nil
}

// Result reports what one snapshot's ingestion produced.
type Result struct {
	Path        string
	VersionDate time.Time
	EventCount  int
	Skipped     bool
}

// IngestSnapshot applies spec §4.2's per-snapshot algorithm: resolve the
// date, skip if already registered (I5), diff against lastState, append
// the resulting batch, and roll the in-memory state forward — all inside
// one store transaction so a crash never leaves a snapshot half-applied.
func (ing *Ingester) IngestSnapshot(ctx context.Context, path string, versionDate time.Time, snap SnapshotReader) (Result, error) {
	seen, err := ing.store.SnapshotSeen(ctx, path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: checking snapshot %s: %v", types.ErrIngestError, path, err)
	}
	if seen {
		return Result{Path: path, VersionDate: versionDate, Skipped: true}, nil
	}

	tx, err := ing.store.BeginTx(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: beginning ingest transaction for %s: %v", types.ErrIngestError, path, err)
	}

	sourceID, err := tx.RegisterSnapshot(ctx, types.SnapshotSource{Path: path, VersionDate: versionDate})
	if err != nil {
		tx.Rollback()
		return Result{}, fmt.Errorf("%w: registering snapshot %s: %v", types.ErrIngestError, path, err)
	}
	sourceIDStr := fmt.Sprintf("%d", sourceID)

	seenIDs := make(map[types.TaxID]bool)
	var events []types.Event

	for taxID, node := range snap.All() {
		prev, existed := ing.state[taxID]
		seenIDs[taxID] = true

		switch {
		case !existed:
			events = append(events, newEvent(types.EventCreate, sourceIDStr, taxID, &node.ParentID, &node.Rank, &node.Name, versionDate))
		case prev.parentID != node.ParentID || prev.rank != node.Rank || prev.name != node.Name:
			events = append(events, newEvent(types.EventAlter, sourceIDStr, taxID, &node.ParentID, &node.Rank, &node.Name, versionDate))
		}

		ing.state[taxID] = lastState{parentID: node.ParentID, rank: node.Rank, name: node.Name}
	}

	// deletions: anything present in the previous snapshot but absent now.
	var removedIDs []types.TaxID
	for taxID := range ing.lastSnapshotIDs {
		if !seenIDs[taxID] {
			removedIDs = append(removedIDs, taxID)
		}
	}
	sort.Slice(removedIDs, func(i, j int) bool { return removedIDs[i] < removedIDs[j] }) // deterministic batch order

	for _, taxID := range removedIDs {
		var parentID *types.TaxID
		if prev, ok := ing.state[taxID]; ok && prev.parentID != "" {
			p := prev.parentID
			parentID = &p
		}
		events = append(events, newEvent(types.EventDelete, sourceIDStr, taxID, parentID, nil, nil, versionDate))
		delete(ing.state, taxID) // a later re-appearance must produce Create, not Alter (spec §4.2 edge rule)
	}

	for start := 0; start < len(events); start += batchSize {
		end := start + batchSize
		if end > len(events) {
			end = len(events)
		}
		if err := tx.AppendEvents(ctx, events[start:end]); err != nil {
			tx.Rollback()
			return Result{}, fmt.Errorf("%w: appending events for %s: %v", types.ErrIngestError, path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("%w: committing snapshot %s: %v", types.ErrIngestError, path, err)
	}

	ing.lastSnapshotIDs = seenIDs

	return Result{Path: path, VersionDate: versionDate, EventCount: len(events)}, nil
}

func newEvent(kind types.EventKind, sourceID string, taxID types.TaxID, parentID *types.TaxID, rank, name *string, versionDate time.Time) types.Event {
	e := types.Event{
		SourceID:    sourceID,
		Kind:        kind,
		TaxID:       taxID,
		VersionDate: versionDate,
	}
	if parentID != nil && *parentID != "" {
		p := *parentID
		e.ParentID = &p
	}
	if rank != nil && *rank != "" {
		r := *rank
		e.Rank = &r
	}
	if name != nil && *name != "" {
		n := *name
		e.Name = &n
	}
	return e
}
