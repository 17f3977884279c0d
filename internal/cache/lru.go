// Package cache provides a generic LRU cache with hit/miss statistics,
// shared by the task analyzer (C4) and strategy selector (C5). Each
// component owns its own instance; there is no global mutable singleton
// (spec §9 "module-level caches decorated onto methods").
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Stats reports cumulative cache performance.
type Stats struct {
	Hits           int64
	Misses         int64
	AvgHitLatency  time.Duration
	AvgMissLatency time.Duration
}

// LRU is a capacity-bounded, thread-safe cache with explicit statistics.
// A capacity of 0 disables caching entirely: Get always misses and Add is a
// no-op, which lets a single implementation serve both the cached and
// uncached code paths (spec §9 "collapse into one implementation
// parameterized by cache capacity").
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	inner    *lru.Cache[K, V]
	disabled bool

	hits, misses         int64
	hitLatencySum        time.Duration
	missLatencySum       time.Duration
}

// New creates an LRU cache with the given capacity. Capacity <= 0 disables
// caching.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		return &LRU[K, V]{disabled: true}
	}
	inner, err := lru.New[K, V](capacity)
	if err != nil {
		// lru.New only fails for non-positive capacity, already excluded above.
		return &LRU[K, V]{disabled: true}
	}
	return &LRU[K, V]{inner: inner}
}

// Get looks up key, recording the latency of the lookup against hit or miss
// statistics. The returned bool follows the usual comma-ok convention.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	start := time.Now()
	if c.disabled {
		var zero V
		c.recordMiss(time.Since(start))
		return zero, false
	}
	c.mu.Lock()
	v, ok := c.inner.Get(key)
	c.mu.Unlock()
	elapsed := time.Since(start)
	if ok {
		c.recordHit(elapsed)
	} else {
		c.recordMiss(elapsed)
	}
	return v, ok
}

// Add inserts or updates key, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *LRU[K, V]) Add(key K, value V) {
	if c.disabled {
		return
	}
	c.mu.Lock()
	c.inner.Add(key, value)
	c.mu.Unlock()
}

// Len returns the number of entries currently cached.
func (c *LRU[K, V]) Len() int {
	if c.disabled {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}

// Purge empties the cache without resetting its statistics. The
// coordinator's cleanup pass does not call it.
func (c *LRU[K, V]) Purge() {
	if c.disabled {
		return
	}
	c.mu.Lock()
	c.inner.Purge()
	c.mu.Unlock()
}

// Stats returns a snapshot of cumulative hit/miss counters and average
// latencies.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Hits: c.hits, Misses: c.misses}
	if c.hits > 0 {
		s.AvgHitLatency = c.hitLatencySum / time.Duration(c.hits)
	}
	if c.misses > 0 {
		s.AvgMissLatency = c.missLatencySum / time.Duration(c.misses)
	}
	return s
}

func (c *LRU[K, V]) recordHit(d time.Duration) {
	c.mu.Lock()
	c.hits++
	c.hitLatencySum += d
	c.mu.Unlock()
}

func (c *LRU[K, V]) recordMiss(d time.Duration) {
	c.mu.Lock()
	c.misses++
	c.missLatencySum += d
	c.mu.Unlock()
}
