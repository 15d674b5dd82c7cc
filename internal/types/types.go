// Package types holds the shared data model for the taxonomy event log:
// the event kinds, the Event record itself, and the sentinel errors every
// other package returns through.
package types

import (
	"errors"
	"time"
)

// TaxID is an NCBI taxonomy identifier. It is kept as a string throughout
// the store and query engine rather than parsed to an integer: NCBI tax IDs
// are opaque identifiers, never arithmetic, and treating them as strings
// avoids overflow/parsing edge cases on merged or historical IDs.
type TaxID string

// EventKind is the kind of change a single event record represents. The
// string values are also the wire-level names used by snapshot ingestion
// and the CLI's JSON output.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventAlter  EventKind = "alter"
	EventDelete EventKind = "delete"
)

// Event is one row of the append-only taxonomy event log. Delete events
// carry no Name/Rank; their ParentID is the taxon's last known parent, or
// nil when none was known.
type Event struct {
	ID          int64
	SourceID    string
	Kind        EventKind
	TaxID       TaxID
	ParentID    *TaxID
	Rank        *string
	Name        *string
	VersionDate time.Time
}

// Node is a single taxon's state as read from a snapshot, independent of
// any event history. It's what the differential ingester diffs against its
// last-known state for a tax ID.
type Node struct {
	TaxID    TaxID
	ParentID TaxID
	Rank     string
	Name     string
}

// SnapshotSource records one ingested snapshot so re-running ingestion over
// the same directory is a no-op.
type SnapshotSource struct {
	ID          int64
	Path        string
	VersionDate time.Time
}

// LineageStep is one node in a resolved lineage or a single point-in-time
// signature entry used by GetVersions to detect when a taxon's ancestry
// changed shape.
type LineageStep struct {
	TaxID    TaxID
	ParentID TaxID
	Rank     string
	Name     string
}

var (
	// ErrNotFound is returned when a query names a tax ID with no events at
	// all, or an as-of time before the taxon's first Create event.
	ErrNotFound = errors.New("taxonomy: not found")

	// ErrMalformedInput is returned for inputs that are syntactically
	// invalid (unparsable as-of timestamps, empty search queries, etc.),
	// never for inputs that are merely absent from the data.
	ErrMalformedInput = errors.New("taxonomy: malformed input")

	// ErrStorageError wraps any failure from the underlying event store
	// that is not itself a domain-meaningful outcome (disk I/O, a closed
	// connection, a broken migration).
	ErrStorageError = errors.New("taxonomy: storage error")

	// ErrFTSParseError names the failure mode of a full-text query FTS5
	// rejects as malformed syntax. No code in this module returns it:
	// SearchFTS turns such a rejection into an empty result directly.
	ErrFTSParseError = errors.New("taxonomy: fts parse error")

	// ErrIngestError wraps a failure encountered while diffing or
	// committing a single snapshot during ingestion.
	ErrIngestError = errors.New("taxonomy: ingest error")
)
