// Package cache keeps recent portal responses in memory so that repeated
// questions about the same week do not hit the portal again.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// LRUCache is a size-bounded cache whose entries expire after a TTL.
type LRUCache struct {
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time
	mu         sync.Mutex

	items map[string]*entry
	order *list.List // front is most recently used
}

type entry struct {
	key       string
	value     any
	expiresAt time.Time
	element   *list.Element
}

// NewLRUCache creates a new LRU cache.
func NewLRUCache(capacity int, defaultTTL time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 256
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &LRUCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		now:        time.Now,
		items:      make(map[string]*entry),
		order:      list.New(),
	}
}

func (c *LRUCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.removeEntry(e)
		return nil, false
	}
	c.order.MoveToFront(e.element)
	return e.value, true
}

// Set stores value under key. A ttl <= 0 uses the cache default.
func (c *LRUCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = c.now().Add(ttl)
		c.order.MoveToFront(e.element)
		return
	}
	for len(c.items) >= c.capacity {
		c.evictOldest()
	}
	e := &entry{key: key, value: value, expiresAt: c.now().Add(ttl)}
	e.element = c.order.PushFront(e)
	c.items[key] = e
}

// Invalidate removes the entry for pattern, or every entry sharing its prefix
// when pattern ends with "*". It returns the number of entries removed.
func (c *LRUCache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix, wildcard := strings.CutSuffix(pattern, "*")
	if !wildcard {
		if e, ok := c.items[pattern]; ok {
			c.removeEntry(e)
			return 1
		}
		return 0
	}

	count := 0
	for key, e := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeEntry(e)
			count++
		}
	}
	return count
}

func (c *LRUCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Must be called with lock held.
func (c *LRUCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(*entry))
}

// Must be called with lock held.
func (c *LRUCache) removeEntry(e *entry) {
	c.order.Remove(e.element)
	delete(c.items, e.key)
}
