package query

import (
	"context"
	"testing"
	"time"

	"github.com/onecodex/taxonomy-time-machine/internal/storage"
	"github.com/onecodex/taxonomy-time-machine/internal/storage/sqlite"
	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

// seedEngine builds an in-memory store reproducing a small synthetic
// history in the shape of spec §8's seed scenarios: a rename + parent
// change (scenario 1/2), a create-then-delete pair (scenario 3), and a
// child that's later deleted (scenario 3's get_children half).
func seedEngine(t *testing.T) (*Engine, storage.Storage) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("beginning tx: %v", err)
	}
	if _, err := tx.RegisterSnapshot(ctx, types.SnapshotSource{Path: "taxdmp_2015-01-01", VersionDate: mustDate(t, "2015-01-01")}); err != nil {
		t.Fatalf("registering snapshot: %v", err)
	}

	events := []types.Event{
		// root
		{SourceID: "s1", Kind: types.EventCreate, TaxID: "1", Rank: ptr("no rank"), Name: ptr("root"), VersionDate: mustDate(t, "2015-01-01")},
		// 821 under old name/parent
		{SourceID: "s1", Kind: types.EventCreate, TaxID: "100", Rank: ptr("genus"), Name: ptr("Bacteroides"), ParentID: ptr(types.TaxID("1")), VersionDate: mustDate(t, "2015-01-01")},
		{SourceID: "s1", Kind: types.EventCreate, TaxID: "821", Rank: ptr("species"), Name: ptr("Bacteroides vulgatus"), ParentID: ptr(types.TaxID("100")), VersionDate: mustDate(t, "2015-01-01")},
		// 352463: created then deleted, no re-creation
		{SourceID: "s1", Kind: types.EventCreate, TaxID: "352463", Rank: ptr("species"), Name: ptr("Ephemeral taxon"), ParentID: ptr(types.TaxID("1")), VersionDate: mustDate(t, "2015-01-01")},
		// 188979 parent with one child that later gets deleted
		{SourceID: "s1", Kind: types.EventCreate, TaxID: "188979", Rank: ptr("genus"), Name: ptr("Gyromitus"), ParentID: ptr(types.TaxID("1")), VersionDate: mustDate(t, "2015-01-01")},
		{SourceID: "s1", Kind: types.EventCreate, TaxID: "200", Rank: ptr("species"), Name: ptr("Gyromitus sp. HFCC94"), ParentID: ptr(types.TaxID("188979")), VersionDate: mustDate(t, "2015-01-01")},
	}
	if err := tx.AppendEvents(ctx, events); err != nil {
		t.Fatalf("appending events: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("committing: %v", err)
	}

	// second snapshot: 821 renamed to Phocaeicola vulgatus under new parent
	// 101=Phocaeicola; 352463 deleted; 200 deleted (child gone).
	tx2, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("beginning tx2: %v", err)
	}
	if _, err := tx2.RegisterSnapshot(ctx, types.SnapshotSource{Path: "taxdmp_2024-12-11", VersionDate: mustDate(t, "2024-12-11")}); err != nil {
		t.Fatalf("registering snapshot2: %v", err)
	}
	events2 := []types.Event{
		{SourceID: "s2", Kind: types.EventAlter, TaxID: "101", Rank: ptr("genus"), Name: ptr("Phocaeicola"), ParentID: ptr(types.TaxID("1")), VersionDate: mustDate(t, "2024-12-11")},
		{SourceID: "s2", Kind: types.EventAlter, TaxID: "821", Rank: ptr("species"), Name: ptr("Phocaeicola vulgatus"), ParentID: ptr(types.TaxID("101")), VersionDate: mustDate(t, "2024-12-11")},
		{SourceID: "s2", Kind: types.EventDelete, TaxID: "352463", VersionDate: mustDate(t, "2024-12-11")},
		{SourceID: "s2", Kind: types.EventDelete, TaxID: "200", VersionDate: mustDate(t, "2024-12-11")},
	}
	if err := tx2.AppendEvents(ctx, events2); err != nil {
		t.Fatalf("appending events2: %v", err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("committing2: %v", err)
	}

	return New(store), store
}

func TestGetLineageRename(t *testing.T) {
	e, _ := seedEngine(t)
	ctx := context.Background()

	lineage, err := e.GetLineage(ctx, "821", mustDate(t, "2024-12-11"))
	if err != nil {
		t.Fatalf("GetLineage: %v", err)
	}
	// the lineage starts with 821's own event, then its ancestors; the root
	// (no parent) is not included.
	if len(lineage) != 2 {
		t.Fatalf("expected 2 lineage entries (821 and its genus), got %d: %+v", len(lineage), lineage)
	}
	if *lineage[1].Name != "Phocaeicola" {
		t.Errorf("expected first ancestor Phocaeicola, got %s", *lineage[1].Name)
	}

	old, err := e.GetLineage(ctx, "821", mustDate(t, "2015-01-01"))
	if err != nil {
		t.Fatalf("GetLineage historical: %v", err)
	}
	if *old[1].Name != "Bacteroides" {
		t.Errorf("expected historical ancestor Bacteroides, got %s", *old[1].Name)
	}
}

func TestGetEventsExactlyTwoForDeletedTaxon(t *testing.T) {
	e, _ := seedEngine(t)
	ctx := context.Background()

	events, err := e.GetEvents(ctx, "352463", time.Time{})
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != types.EventCreate || events[1].Kind != types.EventDelete {
		t.Errorf("expected create then delete, got %s then %s", events[0].Kind, events[1].Kind)
	}
}

func TestGetChildrenDeletedChild(t *testing.T) {
	e, _ := seedEngine(t)
	ctx := context.Background()

	nowChildren, err := e.GetChildren(ctx, "188979", time.Time{})
	if err != nil {
		t.Fatalf("GetChildren now: %v", err)
	}
	if len(nowChildren) != 0 {
		t.Errorf("expected no children now, got %d", len(nowChildren))
	}

	historical, err := e.GetChildren(ctx, "188979", mustDate(t, "2015-01-01"))
	if err != nil {
		t.Fatalf("GetChildren historical: %v", err)
	}
	if len(historical) != 1 || *historical[0].Name != "Gyromitus sp. HFCC94" {
		t.Fatalf("expected one historical child Gyromitus sp. HFCC94, got %+v", historical)
	}
}

func TestSearchNamesNumeric(t *testing.T) {
	e, _ := seedEngine(t)
	ctx := context.Background()

	results, err := e.SearchNames(ctx, "821", 10)
	if err != nil {
		t.Fatalf("SearchNames: %v", err)
	}
	if len(results) == 0 || *results[0].Name != "Phocaeicola vulgatus" {
		t.Fatalf("expected first result Phocaeicola vulgatus, got %+v", results)
	}
}

func TestSearchNamesEscapesSlash(t *testing.T) {
	e, _ := seedEngine(t)
	ctx := context.Background()

	if _, err := e.SearchNames(ctx, "/1985", 4); err != nil {
		t.Fatalf("SearchNames should not error on punctuation-heavy query: %v", err)
	}
}

func TestGetVersionsDetectsLineageChange(t *testing.T) {
	e, _ := seedEngine(t)
	ctx := context.Background()

	versions, err := e.GetVersions(ctx, "821")
	if err != nil {
		t.Fatalf("GetVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 distinct lineage-signature dates, got %d: %+v", len(versions), versions)
	}
}
