// Package query implements the temporal query engine: get_events,
// get_lineage, get_children, get_versions, and search_names, layered over
// internal/storage.Storage, plus the bounded result cache spec §5 permits
// in front of it.
package query

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/onecodex/taxonomy-time-machine/internal/storage"
	"github.com/onecodex/taxonomy-time-machine/internal/storage/sqlite"
	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// maxLineageDepth bounds get_lineage's climb so a cyclic parent chain in
// malformed source data can never hang a query (spec §9 "Cycles in parent
// chains").
const maxLineageDepth = 100

// Engine answers the five temporal queries against a Storage backend.
type Engine struct {
	store storage.Storage
	cache *resultCache
}

// New builds a query engine with its LRU result cache enabled.
func New(store storage.Storage) *Engine {
	return &Engine{
		store: store,
		cache: newResultCache(2048),
	}
}

// GetEvents returns every event for id with version_date <= asOf (if asOf
// is non-zero), ascending by version_date.
func (e *Engine) GetEvents(ctx context.Context, id types.TaxID, asOf time.Time) ([]types.Event, error) {
	v, err := e.cache.getOrCompute(ctx, e.store, "events", id, asOf, func() (any, error) {
		events, err := e.store.EventsByTaxID(ctx, id)
		if err != nil {
			return nil, err
		}

		filtered := make([]types.Event, 0, len(events))
		for _, ev := range events {
			if !asOf.IsZero() && ev.VersionDate.After(asOf) {
				continue
			}
			filtered = append(filtered, ev)
		}
		sortByVersionAsc(filtered)
		return filtered, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Event), nil
}

// GetLineage climbs the "most recent event with a non-null parent" chain
// from tax_id to (but not including) the synthetic root, per spec §4.3.
func (e *Engine) GetLineage(ctx context.Context, id types.TaxID, asOf time.Time) ([]types.Event, error) {
	v, err := e.cache.getOrCompute(ctx, e.store, "lineage", id, asOf, func() (any, error) {
		var out []types.Event
		cursor := id

		for depth := 0; depth < maxLineageDepth; depth++ {
			events, err := e.GetEvents(ctx, cursor, asOf)
			if err != nil {
				return nil, err
			}

			var parent *types.Event
			for i := len(events) - 1; i >= 0; i-- {
				if events[i].ParentID != nil {
					p := events[i]
					parent = &p
					break
				}
			}
			if parent == nil {
				break
			}

			out = append(out, *parent)
			if parent.ParentID == nil {
				break
			}
			cursor = *parent.ParentID
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Event), nil
}

// GetChildren returns the direct children of id at asOf via the N+1-pass
// confirmation algorithm of spec §4.3 / §9: the parent index alone
// overcounts taxa that moved away or were later deleted-then-recreated, so
// every candidate's own latest event is consulted to confirm it still
// belongs under id.
func (e *Engine) GetChildren(ctx context.Context, id types.TaxID, asOf time.Time) ([]types.Event, error) {
	v, err := e.cache.getOrCompute(ctx, e.store, "children", id, asOf, func() (any, error) {
		allByParent, err := e.store.EventsByParentID(ctx, id)
		if err != nil {
			return nil, err
		}

		var p []types.Event
		for _, ev := range allByParent {
			if asOf.IsZero() || !ev.VersionDate.After(asOf) {
				p = append(p, ev)
			}
		}

		candidateIDs := map[types.TaxID]bool{}
		deletedIDs := map[types.TaxID]bool{}
		for _, ev := range p {
			candidateIDs[ev.TaxID] = true
			if ev.Kind == types.EventDelete {
				deletedIDs[ev.TaxID] = true
			}
		}

		survivors := map[types.TaxID]bool{}
		for c := range candidateIDs {
			events, err := e.GetEvents(ctx, c, asOf)
			if err != nil {
				return nil, err
			}
			if len(events) == 0 {
				continue
			}
			lastC := events[len(events)-1]

			if lastC.Kind != types.EventDelete && deletedIDs[c] {
				delete(deletedIDs, c)
			}

			if lastC.ParentID == nil || *lastC.ParentID != id {
				continue
			}
			if deletedIDs[c] {
				continue
			}
			survivors[c] = true
		}

		// collapse to each surviving taxon's latest event within P, tie-broken
		// by last-encountered-in-scan-order per spec §4.3 step 7.
		latest := map[types.TaxID]types.Event{}
		for _, ev := range p {
			if !survivors[ev.TaxID] {
				continue
			}
			cur, ok := latest[ev.TaxID]
			if !ok || ev.VersionDate.After(cur.VersionDate) || ev.VersionDate.Equal(cur.VersionDate) {
				latest[ev.TaxID] = ev
			}
		}

		var out []types.Event
		for _, ev := range latest {
			if ev.Kind != types.EventDelete {
				out = append(out, ev)
			}
		}
		sortByVersionAsc(out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Event), nil
}

// GetVersions returns the dates at which id's resolved lineage actually
// changed shape, per spec §4.3.
func (e *Engine) GetVersions(ctx context.Context, id types.TaxID) ([]time.Time, error) {
	zero := time.Time{}
	v, err := e.cache.getOrCompute(ctx, e.store, "versions", id, zero, func() (any, error) {
		dateSet := map[time.Time]bool{}
		visited := map[types.TaxID]bool{}
		if err := e.collectAncestorDates(ctx, id, visited, dateSet); err != nil {
			return nil, err
		}

		dates := make([]time.Time, 0, len(dateSet))
		for d := range dateSet {
			dates = append(dates, d)
		}
		sortTimesAsc(dates)

		var out []time.Time
		var lastSig uint64
		haveSig := false
		for _, d := range dates {
			lineage, err := e.GetLineage(ctx, id, d)
			if err != nil {
				return nil, err
			}
			if len(lineage) == 0 {
				continue
			}
			sig, err := lineageSignature(toLineageSteps(lineage))
			if err != nil {
				return nil, err
			}
			if !haveSig || sig != lastSig {
				out = append(out, d)
				lastSig = sig
				haveSig = true
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]time.Time), nil
}

// collectAncestorDates walks parent_id transitively from id, collecting
// every version_date any reachable event carries, guarded by a visited set
// against cycles in malformed data (spec §9).
func (e *Engine) collectAncestorDates(ctx context.Context, id types.TaxID, visited map[types.TaxID]bool, dates map[time.Time]bool) error {
	if visited[id] {
		return nil
	}
	visited[id] = true

	events, err := e.store.EventsByTaxID(ctx, id)
	if err != nil {
		return err
	}

	parents := map[types.TaxID]bool{}
	for _, ev := range events {
		dates[ev.VersionDate] = true
		if ev.ParentID != nil {
			parents[*ev.ParentID] = true
		}
	}
	for parent := range parents {
		if err := e.collectAncestorDates(ctx, parent, visited, dates); err != nil {
			return err
		}
	}
	return nil
}

// lineageSignature hashes the (rank, tax_id, parent_id, name) tuple per
// step (spec §4.3) with hashstructure rather than hand-building a
// comparable key: the signature is a slice of structs, which Go can't use
// directly as a map key, and an ordered hash is exactly what "did the
// lineage's shape change" needs.
func lineageSignature(lineage []types.LineageStep) (uint64, error) {
	return hashstructure.Hash(lineage, hashstructure.FormatV2, nil)
}

func toLineageSteps(events []types.Event) []types.LineageStep {
	steps := make([]types.LineageStep, len(events))
	for i, ev := range events {
		step := types.LineageStep{TaxID: ev.TaxID}
		if ev.Rank != nil {
			step.Rank = *ev.Rank
		}
		if ev.Name != nil {
			step.Name = *ev.Name
		}
		if ev.ParentID != nil {
			step.ParentID = *ev.ParentID
		}
		steps[i] = step
	}
	return steps
}

// SearchNames composes the three strategies of spec §4.3 in priority order
// and deduplicates by name, keeping the most recent version_date.
func (e *Engine) SearchNames(ctx context.Context, query string, limit int) ([]types.Event, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.ErrMalformedInput
	}
	if limit <= 0 {
		limit = 10
	}

	var results []types.Event
	seen := map[string]int{} // name -> index into results

	add := func(ev types.Event) {
		if ev.Name == nil {
			return
		}
		if idx, ok := seen[*ev.Name]; ok {
			if ev.VersionDate.After(results[idx].VersionDate) {
				results[idx] = ev
			}
			return
		}
		seen[*ev.Name] = len(results)
		results = append(results, ev)
	}

	if isAllDigits(query) {
		events, err := e.store.SearchExact(ctx, types.TaxID(query))
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			sortByVersionAsc(events)
			add(events[len(events)-1])
		}
	}

	if prefixHits, err := e.store.SearchFTS(ctx, sqlite.PrefixFTSQuery(query), limit*4); err == nil {
		for _, ev := range prefixHits {
			add(ev)
		}
	}

	if phraseHits, err := e.store.SearchFTS(ctx, sqlite.EscapeFTSPhrase(query), limit*4); err == nil {
		for _, ev := range phraseHits {
			add(ev)
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// RandomSpecies delegates to the store's uniform-by-offset selection (spec
// §6, §9 open question resolved in DESIGN.md: picks among all species rows
// ever recorded, alive or not).
func (e *Engine) RandomSpecies(ctx context.Context) (types.Event, int, error) {
	ev, err := e.store.RandomSpecies(ctx)
	if err != nil {
		return types.Event{}, 0, err
	}
	events, err := e.store.EventsByTaxID(ctx, ev.TaxID)
	if err != nil {
		return types.Event{}, 0, err
	}
	return ev, len(events), nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
