// Package embedcache caches component embeddings keyed by their
// canonical text projection and the embedding model that produced them,
// with a deterministic fallback path when the real embedding endpoint is
// unavailable.
package embedcache

import (
	"container/list"
	"sync"
)

type cacheKey struct {
	text  string
	model string
}

type cacheEntry struct {
	key          cacheKey
	vector       []float32
	fromFallback bool
	bytes        int64
}

// Cache is a bounded LRU over embedding vectors. It is safe for
// concurrent use.
type Cache struct {
	mu       sync.Mutex
	maxBytes int64
	curBytes int64
	order    *list.List
	items    map[cacheKey]*list.Element
}

// NewCache creates a cache that evicts least-recently-used entries once
// the combined vector size exceeds maxBytes.
func NewCache(maxBytes int64) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		order:    list.New(),
		items:    make(map[cacheKey]*list.Element),
	}
}

// Get returns the cached vector for (text, model), if present, promoting
// it to most-recently-used.
func (c *Cache) Get(text, model string) ([]float32, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{text: text, model: model}
	el, ok := c.items[key]
	if !ok {
		return nil, false, false
	}
	c.order.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	return entry.vector, entry.fromFallback, true
}

// Put inserts or replaces the vector for (text, model), evicting
// least-recently-used entries until the cache fits within maxBytes.
func (c *Cache) Put(text, model string, vector []float32, fromFallback bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{text: text, model: model}
	size := int64(len(vector)) * 4

	if el, ok := c.items[key]; ok {
		old := el.Value.(*cacheEntry)
		c.curBytes -= old.bytes
		old.vector = vector
		old.fromFallback = fromFallback
		old.bytes = size
		c.curBytes += size
		c.order.MoveToFront(el)
	} else {
		entry := &cacheEntry{key: key, vector: vector, fromFallback: fromFallback, bytes: size}
		el := c.order.PushFront(entry)
		c.items[key] = el
		c.curBytes += size
	}

	for c.curBytes > c.maxBytes && c.order.Len() > 0 {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.evict(back)
	}
}

// Flush returns the cached vector for (text, model) for persistence,
// refusing to hand back a fallback-sourced vector.
func (c *Cache) Flush(text, model string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{text: text, model: model}
	el, ok := c.items[key]
	if !ok {
		return nil, nil
	}
	entry := el.Value.(*cacheEntry)
	if entry.fromFallback {
		return nil, ErrFallbackNotPersistable
	}
	return entry.vector, nil
}

// Clear drops every cached entry. Called when the embedding model
// identifier changes, since every cached vector was produced by a model
// that's no longer the current one.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[cacheKey]*list.Element)
	c.curBytes = 0
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) evict(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	c.curBytes -= entry.bytes
	delete(c.items, entry.key)
	c.order.Remove(el)
}
