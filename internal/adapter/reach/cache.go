package reach

import (
	"context"
	"fmt"
	"sync"

	"github.com/riverwatch/river-gauge-service/internal/domain"
	"github.com/riverwatch/river-gauge-service/internal/observability"
)

// CachedResolver wraps a ReachResolver with an in-memory LRU cache keyed by
// rounded coordinates. The cache lives for the process session only.
type CachedResolver struct {
	inner   domain.ReachResolver
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner domain.ReachResolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// FindNearest consults the cache before delegating to the wrapped resolver.
// Only hits are cached, so transient misses can be retried.
func (c *CachedResolver) FindNearest(ctx context.Context, lat, lon, radiusMeters float64) (domain.ReachFeature, bool) {
	// Four decimals ≈ 11m, finer than any gauge-to-reach pairing needs.
	key := fmt.Sprintf("%.4f,%.4f|%.0f", lat, lon, radiusMeters)
	if feature, ok := c.cache.get(key); ok {
		c.metrics.ReachCache.WithLabelValues("hit").Inc()
		return feature, true
	}
	c.metrics.ReachCache.WithLabelValues("miss").Inc()

	feature, ok := c.inner.FindNearest(ctx, lat, lon, radiusMeters)
	if ok {
		c.cache.put(key, feature)
	}
	return feature, ok
}

// lruCache is a simple thread-safe LRU cache for reach features.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.ReachFeature
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.ReachFeature, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.ReachFeature{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.ReachFeature) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
