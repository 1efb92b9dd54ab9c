// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eventprovenance/gatekeeper/internal/metrics"
)

// keySep separates cache key segments. Resource type and id lead the
// key so resource-level invalidation is a prefix scan.
const keySep = "\x1f"

// decisionCache caches authorization decisions keyed by
// (resource type, resource id, principal id, action, resource version).
//
// The resource version is part of the key, so a decision cached against
// an old version becomes structurally unreachable once the version
// bumps; no runtime version check is needed on reads. Explicit
// invalidation additionally covers non-version-sensitive fact changes.
//
// Expiry is lazy: get treats expired entries as absent. The optional
// sweep goroutine exists for memory hygiene only.
type decisionCache struct {
	ttl      time.Duration
	mu       sync.RWMutex
	items    map[string]*cacheItem
	stopChan chan struct{}
	stopOnce sync.Once
}

type cacheItem struct {
	decision  Decision
	createdAt time.Time
	expiresAt time.Time
}

// newDecisionCache creates a cache with the given TTL and starts the
// background sweeper. A non-positive TTL falls back to 5 minutes.
func newDecisionCache(ttl time.Duration) *decisionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &decisionCache{
		ttl:      ttl,
		items:    make(map[string]*cacheItem),
		stopChan: make(chan struct{}),
	}
	go c.sweep()
	return c
}

// resourcePrefix builds the invalidation prefix for a resource.
func resourcePrefix(resourceType ResourceType, resourceID string) string {
	return string(resourceType) + keySep + resourceID + keySep
}

// key builds the full cache key for a request.
func (c *decisionCache) key(req Request) string {
	return resourcePrefix(req.Resource.Type, req.Resource.ID) +
		req.Principal.ID + keySep +
		req.Action + keySep +
		strconv.FormatInt(req.Resource.Version, 10)
}

// get returns a cached decision if present and not expired.
func (c *decisionCache) get(req Request) (Decision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[c.key(req)]
	if !ok {
		return Decision{}, false
	}
	if time.Now().After(item.expiresAt) {
		return Decision{}, false
	}
	return item.decision, true
}

// put inserts or wholesale-replaces a decision.
func (c *decisionCache) put(req Request, d Decision) {
	now := time.Now()

	c.mu.Lock()
	c.items[c.key(req)] = &cacheItem{
		decision:  d,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
	size := len(c.items)
	c.mu.Unlock()

	metrics.UpdateCacheSize(size)
}

// invalidateResource removes every entry for the resource, independent
// of principal, action, or cached version. Idempotent; invalidating an
// uncached resource is a no-op.
func (c *decisionCache) invalidateResource(resourceType ResourceType, resourceID string) {
	prefix := resourcePrefix(resourceType, resourceID)

	c.mu.Lock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	metrics.RecordCacheInvalidation(string(resourceType))
	metrics.UpdateCacheSize(size)
}

// evictExpired removes all TTL-expired entries and returns the count
// removed. Callable on a timer; not required for correctness.
func (c *decisionCache) evictExpired() int {
	now := time.Now()
	evicted := 0

	c.mu.Lock()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			evicted++
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	if evicted > 0 {
		metrics.RecordCacheEvictions(evicted)
	}
	metrics.UpdateCacheSize(size)
	return evicted
}

// size returns the current entry count, expired entries included.
func (c *decisionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// sweep periodically evicts expired entries.
func (c *decisionCache) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

// stop stops the sweeper goroutine. Idempotent.
func (c *decisionCache) stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}
