package ingest

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/onecodex/taxonomy-time-machine/internal/storage/sqlite"
	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// fakeSnapshot is a minimal in-memory SnapshotReader for tests, standing
// in for internal/taxdump.Reader.
type fakeSnapshot struct {
	nodes map[types.TaxID]types.Node
	order []types.TaxID
}

func newFakeSnapshot(nodes map[types.TaxID]types.Node, order []types.TaxID) *fakeSnapshot {
	return &fakeSnapshot{nodes: nodes, order: order}
}

func (f *fakeSnapshot) All() iter.Seq2[types.TaxID, types.Node] {
	return func(yield func(types.TaxID, types.Node) bool) {
		for _, id := range f.order {
			if !yield(id, f.nodes[id]) {
				return
			}
		}
	}
}

func (f *fakeSnapshot) Lookup(id types.TaxID) (types.Node, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parsing date: %v", err)
	}
	return d
}

func TestIngestCreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	ing, err := New(ctx, store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	snap1 := newFakeSnapshot(map[types.TaxID]types.Node{
		"1":   {TaxID: "1", ParentID: "", Rank: "no rank", Name: "root"},
		"821": {TaxID: "821", ParentID: "1", Rank: "species", Name: "Bacteroides vulgatus"},
	}, []types.TaxID{"1", "821"})

	res1, err := ing.IngestSnapshot(ctx, "dumps/taxdmp_2015-01-01", mustDate(t, "2015-01-01"), snap1)
	if err != nil {
		t.Fatalf("ingest snapshot1: %v", err)
	}
	if res1.EventCount != 2 {
		t.Fatalf("expected 2 create events, got %d", res1.EventCount)
	}

	// re-ingesting the same path is a no-op (I5).
	res1Again, err := ing.IngestSnapshot(ctx, "dumps/taxdmp_2015-01-01", mustDate(t, "2015-01-01"), snap1)
	if err != nil {
		t.Fatalf("re-ingest snapshot1: %v", err)
	}
	if !res1Again.Skipped {
		t.Fatalf("expected re-ingestion to be skipped")
	}

	snap2 := newFakeSnapshot(map[types.TaxID]types.Node{
		"1": {TaxID: "1", ParentID: "", Rank: "no rank", Name: "root"},
		// 821 no longer present -> a Delete is emitted for it
		"822": {TaxID: "822", ParentID: "1", Rank: "species", Name: "Phocaeicola vulgatus"},
	}, []types.TaxID{"1", "822"})

	res2, err := ing.IngestSnapshot(ctx, "dumps/taxdmp_2016-01-01", mustDate(t, "2016-01-01"), snap2)
	if err != nil {
		t.Fatalf("ingest snapshot2: %v", err)
	}
	// expect: create(822) + delete(821) = 2 events; "1" unchanged -> no event
	if res2.EventCount != 2 {
		t.Fatalf("expected 2 events (create 822, delete 821), got %d", res2.EventCount)
	}

	events, err := store.EventsByTaxID(ctx, "821")
	if err != nil {
		t.Fatalf("EventsByTaxID: %v", err)
	}
	if len(events) != 2 || events[1].Kind != types.EventDelete {
		t.Fatalf("expected 821 to have create then delete, got %+v", events)
	}
}

func TestIngestRecreateAfterDeletion(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	ing, err := New(ctx, store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	snap1 := newFakeSnapshot(map[types.TaxID]types.Node{
		"5": {TaxID: "5", ParentID: "1", Rank: "species", Name: "Gone soon"},
	}, []types.TaxID{"5"})
	if _, err := ing.IngestSnapshot(ctx, "dumps/taxdmp_2015-01-01", mustDate(t, "2015-01-01"), snap1); err != nil {
		t.Fatalf("ingest snapshot1: %v", err)
	}

	snap2 := newFakeSnapshot(map[types.TaxID]types.Node{}, nil)
	if _, err := ing.IngestSnapshot(ctx, "dumps/taxdmp_2016-01-01", mustDate(t, "2016-01-01"), snap2); err != nil {
		t.Fatalf("ingest snapshot2: %v", err)
	}

	snap3 := newFakeSnapshot(map[types.TaxID]types.Node{
		"5": {TaxID: "5", ParentID: "1", Rank: "species", Name: "Back again"},
	}, []types.TaxID{"5"})
	if _, err := ing.IngestSnapshot(ctx, "dumps/taxdmp_2017-01-01", mustDate(t, "2017-01-01"), snap3); err != nil {
		t.Fatalf("ingest snapshot3: %v", err)
	}

	events, err := store.EventsByTaxID(ctx, "5")
	if err != nil {
		t.Fatalf("EventsByTaxID: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events (create, delete, re-create), got %d: %+v", len(events), events)
	}
	if events[0].Kind != types.EventCreate || events[1].Kind != types.EventDelete || events[2].Kind != types.EventCreate {
		t.Fatalf("expected create/delete/create, got %s/%s/%s", events[0].Kind, events[1].Kind, events[2].Kind)
	}
}
