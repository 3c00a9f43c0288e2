package supplier

import (
	"sync"
	"time"

	"github.com/opencircuit/core/engine/domain"
)

// cacheKey identifies a cached response by the upstream endpoint it came
// from and the query that produced it, per spec: responses are cached
// per (endpoint, query) for a configured TTL.
type cacheKey struct {
	endpoint string
	query    string
}

type cacheEntry struct {
	results   []domain.Component
	detail    *domain.Component
	expiresAt time.Time
}

// responseCache is a small TTL cache keyed on (endpoint, query). It holds
// both search result lists and single-component detail lookups.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
	now     func() time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{ttl: ttl, entries: make(map[cacheKey]cacheEntry), now: time.Now}
}

func (c *responseCache) getSearch(endpoint, query string) ([]domain.Component, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{endpoint, query}]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.results, true
}

func (c *responseCache) putSearch(endpoint, query string, results []domain.Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{endpoint, query}] = cacheEntry{results: results, expiresAt: c.now().Add(c.ttl)}
}

func (c *responseCache) getDetail(endpoint, partNumber string) (*domain.Component, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{endpoint, partNumber}]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.detail, true
}

func (c *responseCache) putDetail(endpoint, partNumber string, detail *domain.Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{endpoint, partNumber}] = cacheEntry{detail: detail, expiresAt: c.now().Add(c.ttl)}
}
