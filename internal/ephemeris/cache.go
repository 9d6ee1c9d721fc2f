package ephemeris

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sky/skyplan/internal/metrics"
)

// sunID is the reserved cache id for the Sun; the Moon has its own map
// keyed by quantized instant alone. Catalog ids never start with '@'.
const sunID = "@sun"

// cacheKey addresses one memoized sample: object id plus the instant
// quantized to the cache step.
type cacheKey struct {
	id   string
	unix int64
}

// Cache is the per-run read-through memo for apparent positions, keyed by
// (object id, quantized instant). It lives for one run and is simply
// discarded afterwards; there is no eviction or invalidation.
// Safe for concurrent use by the visibility worker pool.
type Cache struct {
	mu      sync.RWMutex
	quantum time.Duration
	samples map[cacheKey]Sample
	moon    map[int64]MoonState

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats holds the cache counters for one run.
type CacheStats struct {
	Entries int
	Hits    int64
	Misses  int64
}

func newCache(quantum time.Duration) *Cache {
	return &Cache{
		quantum: quantum,
		samples: make(map[cacheKey]Sample),
		moon:    make(map[int64]MoonState),
	}
}

// quantize rounds an instant down to the cache step, in UTC so lookups hit
// consistently regardless of the zone attached to t.
func (c *Cache) quantize(t time.Time) int64 {
	return t.UTC().Truncate(c.quantum).Unix()
}

func (c *Cache) get(id string, t time.Time) (Sample, bool) {
	key := cacheKey{id: id, unix: c.quantize(t)}

	c.mu.RLock()
	s, ok := c.samples[key]
	c.mu.RUnlock()

	c.count(ok)
	return s, ok
}

func (c *Cache) put(id string, t time.Time, s Sample) {
	key := cacheKey{id: id, unix: c.quantize(t)}

	c.mu.Lock()
	c.samples[key] = s
	c.mu.Unlock()
}

func (c *Cache) getMoon(t time.Time) (MoonState, bool) {
	key := c.quantize(t)

	c.mu.RLock()
	m, ok := c.moon[key]
	c.mu.RUnlock()

	c.count(ok)
	return m, ok
}

func (c *Cache) putMoon(t time.Time, m MoonState) {
	key := c.quantize(t)

	c.mu.Lock()
	c.moon[key] = m
	c.mu.Unlock()
}

func (c *Cache) count(hit bool) {
	if hit {
		c.hits.Add(1)
		metrics.IncCacheHit()
		return
	}
	c.misses.Add(1)
	metrics.IncCacheMiss()
}

func (c *Cache) stats() CacheStats {
	c.mu.RLock()
	entries := len(c.samples) + len(c.moon)
	c.mu.RUnlock()

	return CacheStats{
		Entries: entries,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
