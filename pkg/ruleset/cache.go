package ruleset

import (
	"container/list"
	"sync"
	"time"

	"github.com/fluxgate/fluxgate/pkg/limiter"
)

// Stats is a point-in-time snapshot of cache effectiveness counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	Size        int
}

type cacheEntry struct {
	id        string
	set       *limiter.RuleSet
	expiresAt time.Time // zero when the cache has no TTL
}

// Cache is a thread-safe, bounded rule-set cache with LRU eviction and an
// optional per-entry TTL. When the cache is full the least recently used
// set is evicted; an expired entry counts as a miss and is dropped on
// access.
type Cache struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List
	stats    Stats
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL bounds how long a cached set stays valid. Zero disables
// expiration, which is the default.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheClock replaces the time source used for TTL checks in tests.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates a cache holding at most capacity rule sets.
// Non-positive capacities fall back to a single entry.
func NewCache(capacity int, opts ...CacheOption) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	c := &Cache{
		capacity: capacity,
		now:      time.Now,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached set and marks it as recently used. An expired
// entry is removed and reported as a miss.
func (c *Cache) Get(id string) (*limiter.RuleSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[id]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.removeLocked(elem)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return entry.set, true
}

// Put adds or refreshes a cached set. At capacity the least recently used
// entry makes room.
func (c *Cache) Put(id string, set *limiter.RuleSet) {
	if id == "" || set == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.items[id]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.set = set
		entry.expiresAt = expiresAt
		return
	}

	elem := c.eviction.PushFront(&cacheEntry{id: id, set: set, expiresAt: expiresAt})
	c.items[id] = elem

	if c.eviction.Len() > c.capacity {
		if oldest := c.eviction.Back(); oldest != nil {
			c.removeLocked(oldest)
			c.stats.Evictions++
		}
	}
}

// Invalidate drops one cached set and reports whether it was present.
func (c *Cache) Invalidate(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[id]
	if !ok {
		return false
	}
	c.removeLocked(elem)
	return true
}

// InvalidateAll drops every cached set.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

// IDs returns a snapshot of the cached rule-set ids, most recently used
// first.
func (c *Cache) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, c.eviction.Len())
	for elem := c.eviction.Front(); elem != nil; elem = elem.Next() {
		ids = append(ids, elem.Value.(*cacheEntry).id)
	}
	return ids
}

// Len returns the number of cached sets, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.eviction.Len()
	return s
}

// removeLocked unlinks an entry. Callers hold c.mu.
func (c *Cache) removeLocked(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).id)
}
