package query

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/onecodex/taxonomy-time-machine/internal/storage"
	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// resultCache is a bounded LRU keyed on (operation, tax_id, as_of), as
// spec §5 / §9 permit in front of the five query entry points. No
// off-the-shelf LRU sits in the teacher's or pack's dependency surface, so
// this is hand-rolled; see DESIGN.md for that justification. Concurrent
// cache-miss lookups for the same key are collapsed via singleflight
// (golang.org/x/sync), avoiding duplicate store round-trips from a pool of
// parallel request handlers (spec §5).
type resultCache struct {
	mu         sync.RWMutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	generation int64
	group      singleflight.Group
}

type cacheEntry struct {
	key        string
	generation int64
	value      any
}

func newResultCache(maxEntries int) *resultCache {
	return &resultCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		generation: -1, // forces a refresh against the store on first use
	}
}

func cacheKey(op string, id types.TaxID, asOf time.Time) string {
	return fmt.Sprintf("%s:%s:%d", op, id, asOf.UnixNano())
}

// syncGeneration refreshes the cache's notion of the store's current
// ingestion generation, dropping everything if it has moved — the
// enforcement point for spec §9's "cache must be cleared on any ingestion."
func (c *resultCache) syncGeneration(ctx context.Context, store storage.Storage) {
	gen, err := store.CacheGeneration(ctx)
	if err != nil {
		return // best-effort; a failed generation read leaves the cache as it is, unflushed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.entries = make(map[string]*list.Element)
		c.order = list.New()
		c.generation = gen
	}
}

func (c *resultCache) get(key string) (any, bool) {
	c.mu.RLock()
	elem, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	c.order.MoveToFront(elem)
	c.mu.Unlock()

	return elem.Value.(*cacheEntry).value, true
}

func (c *resultCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).value = value
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{key: key, generation: c.generation, value: value})
	c.entries[key] = elem

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// getOrCompute answers a cache-miss by calling compute, but collapses
// concurrent misses for the same key via singleflight so a burst of
// parallel request handlers asking for the same (op, tax_id, as_of) only
// hits the store once (spec §5).
func (c *resultCache) getOrCompute(ctx context.Context, store storage.Storage, op string, id types.TaxID, asOf time.Time, compute func() (any, error)) (any, error) {
	c.syncGeneration(ctx, store)

	key := cacheKey(op, id, asOf)
	if cached, ok := c.get(key); ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.get(key); ok {
			return cached, nil
		}
		value, err := compute()
		if err != nil {
			return nil, err
		}
		c.put(key, value)
		return value, nil
	})
	return v, err
}
