package engine

import (
	"sync"
	"sync/atomic"
)

type cacheKey struct {
	host  string
	parts int
}

type result struct {
	value string
	ok    bool
}

// ResultCache memoizes lookups by host and label count. A nil cache is a
// valid no-op cache.
type ResultCache struct {
	entries map[cacheKey]result
	limit   int
	lock    sync.RWMutex

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewResultCache(limit int) *ResultCache {
	if limit <= 0 {
		return nil
	}
	return &ResultCache{
		entries: make(map[cacheKey]result, limit),
		limit:   limit,
	}
}

func (c *ResultCache) Get(key cacheKey) (result, bool) {
	if c == nil {
		return result{}, false
	}

	c.lock.RLock()
	r, ok := c.entries[key]
	c.lock.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return r, ok
}

// Put stores r, evicting an arbitrary entry when the cache is full.
func (c *ResultCache) Put(key cacheKey, r result) {
	if c == nil {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.limit {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = r
}

func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.entries)
}

func (c *ResultCache) Stats() (hits, misses uint64, size int) {
	if c == nil {
		return 0, 0, 0
	}
	return c.hits.Load(), c.misses.Load(), c.Len()
}
