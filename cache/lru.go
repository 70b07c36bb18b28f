// Package cache provides the in-process caches: a TTL LRU used as the L1
// retrieval cache and the per-case analysis result cache built on top of it.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is the interface shared by the in-process caches.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Len() int
	Purge()
}

type lruEntry struct {
	key     string
	value   any
	expires time.Time
	element *list.Element
}

type lruCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruEntry
	order    *list.List
}

// NewLRU creates an LRU cache with the given capacity and default TTL.
// A non-positive per-entry TTL in Set falls back to the default; a
// non-positive default means entries never expire.
func NewLRU(capacity int, ttl time.Duration) Cache {
	if capacity <= 0 {
		capacity = 512
	}
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry, capacity),
		order:    list.New(),
	}
}

func (c *lruCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !ent.expires.IsZero() && !time.Now().Before(ent.expires) {
		c.remove(ent)
		return nil, false
	}
	c.order.MoveToFront(ent.element)
	return ent.value, true
}

func (c *lruCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		ent.value = value
		ent.expires = c.expiry(ttl)
		c.order.MoveToFront(ent.element)
		return
	}
	if len(c.items) >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			if ent, ok := c.items[oldest.Value.(string)]; ok {
				c.remove(ent)
			}
		}
	}
	c.items[key] = &lruEntry{
		key:     key,
		value:   value,
		expires: c.expiry(ttl),
		element: c.order.PushFront(key),
	}
}

func (c *lruCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.remove(ent)
	}
}

func (c *lruCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lruCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*lruEntry, c.capacity)
	c.order.Init()
}

func (c *lruCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (c *lruCache) remove(ent *lruEntry) {
	c.order.Remove(ent.element)
	delete(c.items, ent.key)
}
