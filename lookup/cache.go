package lookup

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
	"tailscale.com/util/lru"
)

// CacheStats is a snapshot of one cache's counters.
type CacheStats struct {
	Name       string `json:"name"`
	MaxEntries int    `json:"max_entries"`
	Len        int    `json:"len"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Fetches    uint64 `json:"fetches"`
	Evictions  uint64 `json:"evictions"`
}

// Cache memoizes a fetch function by key with least-recently-used eviction.
//
// A hit marks the entry as most recently used. Inserting a key into a full
// cache evicts the least recently used entry. Failed fetches are not stored.
// Concurrent misses for one key share a single fetch. A caller whose
// context ends stops waiting and gets the context error; the fetch keeps
// running for the remaining callers.
type Cache[K comparable, V any] struct {
	name  string
	max   int
	group singleflight.Group

	mu        sync.Mutex
	entries   lru.Cache[K, V]
	hits      uint64
	misses    uint64
	fetches   uint64
	evictions uint64
}

// NewCache returns a cache holding at most maxEntries values. Zero means unbounded.
func NewCache[K comparable, V any](name string, maxEntries int) *Cache[K, V] {
	c := &Cache[K, V]{name: name, max: maxEntries}
	c.entries.MaxEntries = maxEntries
	return c
}

// Get returns the cached value for key, calling fetch on a miss.
func (c *Cache[K, V]) Get(ctx context.Context, key K, fetch func(context.Context, K) (V, error)) (V, error) {
	c.mu.Lock()
	if v, ok := c.entries.GetOk(key); ok {
		c.hits++
		c.mu.Unlock()
		return v, nil
	}
	c.misses++
	c.mu.Unlock()

	// the fetch is shared, so it ignores the cancellation of whichever
	// caller happened to start it
	fctx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprint(key), func() (any, error) {
		// another flight may have stored the key between our miss and now
		c.mu.Lock()
		if v, ok := c.entries.PeekOk(key); ok {
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		v, err := fetch(fctx, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.fetches++
		c.storeLocked(key, v)
		c.mu.Unlock()
		return v, nil
	})
	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(V), nil
	}
}

// Peek reports whether key is cached without touching its recency.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.PeekOk(key)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Purge drops every entry and resets the counters.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = lru.Cache[K, V]{MaxEntries: c.max}
	c.hits, c.misses, c.fetches, c.evictions = 0, 0, 0, 0
}

// Stats returns a snapshot of the counters.
func (c *Cache[K, V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Name:       c.name,
		MaxEntries: c.max,
		Len:        c.entries.Len(),
		Hits:       c.hits,
		Misses:     c.misses,
		Fetches:    c.fetches,
		Evictions:  c.evictions,
	}
}

func (c *Cache[K, V]) storeLocked(key K, v V) {
	if _, present := c.entries.PeekOk(key); !present && c.max > 0 && c.entries.Len() >= c.max {
		c.evictions++
	}
	c.entries.Set(key, v)
}
