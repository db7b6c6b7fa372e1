package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ec2keeper/ec2keeper/internal/infra/metrics"
)

// DefaultTTL is applied when Set/GetOrSet receive a non-positive TTL.
const DefaultTTL = 30 * time.Second

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hitRate"`
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
	hits      int
}

// Cache is an in-memory TTL cache. A value is visible to readers iff
// now < expiresAt; expired entries count as misses even before they are
// physically swept. The mutex guards only map access, never a remote call.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	defaultTTL time.Duration
	now        func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache with the given default TTL (DefaultTTL when non-positive).
func New[V any](defaultTTL time.Duration) *Cache[V] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached value for key. An entry whose expiry has passed is
// treated as a miss and evicted on the spot.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		metrics.RecordCacheMiss()

		return zero, false
	}

	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		metrics.RecordCacheEviction()
		metrics.RecordCacheMiss()

		return zero, false
	}

	e.hits++
	c.entries[key] = e
	c.hits++
	metrics.RecordCacheHit()

	return e.value, true
}

// Set stores value under key with the given TTL (default TTL when non-positive).
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Delete removes key. Mutating operations must call this synchronously so
// the next read refreshes from ground truth.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Sweep removes all expired entries and returns how many were evicted.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	swept := 0

	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			c.evictions++
			metrics.RecordCacheEviction()

			swept++
		}
	}

	return swept
}

// GetOrSet returns the cached value for key, or runs producer on a miss and
// caches the result before returning it. Concurrent misses for the same key
// may each run the producer; the last write wins. The producer runs outside
// the cache lock.
func (c *Cache[V]) GetOrSet(
	ctx context.Context,
	key string,
	ttl time.Duration,
	producer func(ctx context.Context) (V, error),
) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := producer(ctx)
	if err != nil {
		var zero V

		return zero, err
	}

	c.Set(key, value, ttl)

	return value, nil
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		HitRate:   hitRate,
	}
}
