package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/onecodex/taxonomy-time-machine/internal/taxdump"
)

// DiscoverSnapshots finds every `*_YYYY-MM-DD*` directory under root and
// returns them sorted by their resolved version_date, ascending — the same
// ordering the original loader produces via
// `sorted(taxdumps, key=lambda p: datetime.strptime(...))`.
func DiscoverSnapshots(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot root %s: %w", root, err)
	}

	type candidate struct {
		path string
		date string
	}
	var candidates []candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if _, err := taxdump.DateFromPath(path); err != nil {
			continue // not a dated snapshot directory; skip silently
		}
		candidates = append(candidates, candidate{path: path})
	}

	sort.Slice(candidates, func(i, j int) bool {
		di, _ := taxdump.DateFromPath(candidates[i].path)
		dj, _ := taxdump.DateFromPath(candidates[j].path)
		return di.Before(dj)
	})

	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.path
	}
	return paths, nil
}

// IngestAll runs IngestSnapshot over every discovered snapshot in date
// order, loading each with taxdump.Load. It stops and returns the first
// error encountered — per spec §4.2's failure semantics, a snapshot that
// fails aborts without poisoning prior (already-committed) snapshots, and
// the whole run is safely retryable.
func (ing *Ingester) IngestAll(ctx context.Context, root string) ([]Result, error) {
	paths, err := DiscoverSnapshots(root)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, path := range paths {
		date, err := taxdump.DateFromPath(path)
		if err != nil {
			return results, err
		}

		reader, err := taxdump.Load(path)
		if err != nil {
			return results, err
		}

		res, err := ing.IngestSnapshot(ctx, path, date, reader)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
