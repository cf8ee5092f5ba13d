package cache

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CacheMetrics tracks cache performance.
type CacheMetrics struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
}

// LRUCache is a generic fixed-capacity cache with a TTL. Reads refresh
// recency, so fingerprints that keep getting asked for survive capacity
// pressure. Expired entries fall out on read or when capacity pushes them
// past the tail; there is no background sweeper.
type LRUCache[T any] struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // front is most recently used
	capacity int
	ttl      time.Duration
	name     string
	metrics  CacheMetrics
	onEvict  func(key string)
	logger   *zap.Logger
	now      func() time.Time
}

type lruEntry[T any] struct {
	key        string
	value      T
	expiration int64
}

// NewLRUCache creates a bounded cache. onEvict may be nil; when set it runs
// for every entry dropped by capacity, with the cache lock held, so keep it
// cheap.
func NewLRUCache[T any](capacity int, ttl time.Duration, name string, onEvict func(key string), logger *zap.Logger) *LRUCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUCache[T]{
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		name:     name,
		onEvict:  onEvict,
		logger:   logger,
		now:      time.Now,
	}
}

// Get retrieves an item, marks it most recently used and restarts its TTL,
// so entries under steady demand never age out.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, found := c.items[key]
	if !found {
		c.metrics.Misses++
		return zero, false
	}

	entry := elem.Value.(*lruEntry[T])
	if c.now().UnixNano() > entry.expiration {
		c.removeElement(elem)
		c.metrics.Misses++
		c.logger.Debug("Cache expired",
			zap.String("cache", c.name),
			zap.String("key", key),
		)
		return zero, false
	}

	entry.expiration = c.now().Add(c.ttl).UnixNano()
	c.order.MoveToFront(elem)
	c.metrics.Hits++
	return entry.value, true
}

// Set stores an item, evicting from the least recently used end when the
// cache is over capacity.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiration := c.now().Add(c.ttl).UnixNano()
	if elem, found := c.items[key]; found {
		entry := elem.Value.(*lruEntry[T])
		entry.value = value
		entry.expiration = expiration
		c.order.MoveToFront(elem)
		c.metrics.Sets++
		return
	}

	c.items[key] = c.order.PushFront(&lruEntry[T]{key: key, value: value, expiration: expiration})
	c.metrics.Sets++

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		evictedKey := oldest.Value.(*lruEntry[T]).key
		c.removeElement(oldest)
		c.metrics.Evictions++
		if c.onEvict != nil {
			c.onEvict(evictedKey)
		}
		c.logger.Debug("Cache evicted",
			zap.String("cache", c.name),
			zap.String("key", evictedKey),
		)
	}
}

// Delete removes an item from the cache.
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[key]; found {
		c.removeElement(elem)
	}
}

// Len returns the number of items in the cache.
func (c *LRUCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// GetMetrics returns current cache metrics.
func (c *LRUCache[T]) GetMetrics() CacheMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	entry := elem.Value.(*lruEntry[T])
	delete(c.items, entry.key)
	c.order.Remove(elem)
}
