// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"sync"
	"time"

	"github.com/danielhkuo/doudou/models"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache is a mutex-guarded map whose entries expire
type ttlCache[V any] struct {
	mu    sync.Mutex
	items map[string]cacheItem[V]
	now   func() time.Time
}

func newTTLCache[V any](now func() time.Time) *ttlCache[V] {
	return &ttlCache[V]{items: make(map[string]cacheItem[V]), now: now}
}

func (c *ttlCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem[V]{value: value, expiresAt: c.now().Add(ttl)}
}

func (c *ttlCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok || !c.now().Before(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

// Take removes and returns a live entry in one step
func (c *ttlCache[V]) Take(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	delete(c.items, key)
	if !ok || !c.now().Before(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

func (c *ttlCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Sweep drops expired entries and returns how many were removed
func (c *ttlCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

func (c *ttlCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// resultsCache keeps computed leaderboards per session. Every write moves the
// session to a new generation; a computation started before the move is
// discarded instead of cached, so a reader never caches rows older than a
// write it raced with.
//
// Generations come from one counter and are never reused. sweep forgets every
// per-session generation and raises floor to the counter, which sessions
// without an entry report, so a computation in flight across a sweep is
// discarded rather than mistaken for current.
type resultsCache struct {
	mu      sync.Mutex
	entries *ttlCache[models.Results]
	gens    map[string]uint64
	next    uint64
	floor   uint64
}

func newResultsCache(now func() time.Time) *resultsCache {
	return &resultsCache{entries: newTTLCache[models.Results](now), gens: make(map[string]uint64)}
}

func (c *resultsCache) get(sessionID string) (models.Results, bool) {
	return c.entries.Get(sessionID)
}

func (c *resultsCache) generation(sessionID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationLocked(sessionID)
}

func (c *resultsCache) generationLocked(sessionID string) uint64 {
	if gen, ok := c.gens[sessionID]; ok {
		return gen
	}
	return c.floor
}

// store caches results computed at generation gen, if still current
func (c *resultsCache) store(sessionID string, gen uint64, results models.Results, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generationLocked(sessionID) != gen || ttl <= 0 {
		return
	}
	c.entries.Set(sessionID, results, ttl)
}

func (c *resultsCache) invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.gens[sessionID] = c.next
	c.entries.Delete(sessionID)
}

// sweep drops expired leaderboards and all per-session generations
func (c *resultsCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Sweep()
	clear(c.gens)
	c.floor = c.next
}
