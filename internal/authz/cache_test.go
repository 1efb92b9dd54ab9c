// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func cacheRequest(principal, action, resourceID string, version int64) Request {
	return Request{
		Principal: Principal{ID: principal},
		Action:    action,
		Resource: ResourceRef{
			Type:    ResourceEventReceiver,
			ID:      resourceID,
			Version: version,
		},
	}
}

func TestCachePutGet(t *testing.T) {
	c := newDecisionCache(time.Minute)
	defer c.stop()

	req := cacheRequest("alice", "event_receiver:read", "r1", 1)

	if _, ok := c.get(req); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.put(req, Decision{Allowed: true, Source: SourcePolicyEngine})

	d, ok := c.get(req)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if !d.Allowed {
		t.Error("cached decision should be allowed")
	}
}

func TestCacheKeyIncludesVersion(t *testing.T) {
	c := newDecisionCache(time.Minute)
	defer c.stop()

	c.put(cacheRequest("alice", "event_receiver:read", "r1", 1), Decision{Allowed: true})

	// Same principal, action, and resource at a newer version must miss.
	if _, ok := c.get(cacheRequest("alice", "event_receiver:read", "r1", 2)); ok {
		t.Error("decision cached at version 1 must be unreachable at version 2")
	}
	if _, ok := c.get(cacheRequest("alice", "event_receiver:read", "r1", 1)); !ok {
		t.Error("decision at version 1 should still hit with version 1")
	}
}

func TestCacheKeyDiscriminatesAllComponents(t *testing.T) {
	c := newDecisionCache(time.Minute)
	defer c.stop()

	base := cacheRequest("alice", "event_receiver:read", "r1", 1)
	c.put(base, Decision{Allowed: true})

	variants := []Request{
		cacheRequest("bob", "event_receiver:read", "r1", 1),
		cacheRequest("alice", "event_receiver:update", "r1", 1),
		cacheRequest("alice", "event_receiver:read", "r2", 1),
	}
	for i, v := range variants {
		if _, ok := c.get(v); ok {
			t.Errorf("variant %d unexpectedly hit the cache", i)
		}
	}

	other := base
	other.Resource.Type = ResourceEvent
	if _, ok := c.get(other); ok {
		t.Error("different resource type unexpectedly hit the cache")
	}
}

func TestCacheInvalidateResource(t *testing.T) {
	c := newDecisionCache(time.Minute)
	defer c.stop()

	// Several principals, actions, and versions against one resource.
	c.put(cacheRequest("alice", "event_receiver:read", "r1", 1), Decision{Allowed: true})
	c.put(cacheRequest("bob", "event_receiver:update", "r1", 1), Decision{Allowed: true})
	c.put(cacheRequest("alice", "event_receiver:read", "r1", 2), Decision{Allowed: true})
	// Unrelated resource must survive.
	c.put(cacheRequest("alice", "event_receiver:read", "r2", 1), Decision{Allowed: true})

	c.invalidateResource(ResourceEventReceiver, "r1")

	for _, req := range []Request{
		cacheRequest("alice", "event_receiver:read", "r1", 1),
		cacheRequest("bob", "event_receiver:update", "r1", 1),
		cacheRequest("alice", "event_receiver:read", "r1", 2),
	} {
		if _, ok := c.get(req); ok {
			t.Errorf("entry for invalidated resource survived: %+v", req)
		}
	}
	if _, ok := c.get(cacheRequest("alice", "event_receiver:read", "r2", 1)); !ok {
		t.Error("unrelated resource was invalidated")
	}
}

func TestCacheInvalidateIsIdempotent(t *testing.T) {
	c := newDecisionCache(time.Minute)
	defer c.stop()

	// Invalidating an uncached resource is a no-op, twice as well.
	c.invalidateResource(ResourceEvent, "nope")
	c.invalidateResource(ResourceEvent, "nope")

	if got := c.size(); got != 0 {
		t.Errorf("size = %d, want 0", got)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newDecisionCache(10 * time.Millisecond)
	defer c.stop()

	req := cacheRequest("alice", "event_receiver:read", "r1", 1)
	c.put(req, Decision{Allowed: true})

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.get(req); ok {
		t.Error("expired entry served from cache")
	}
}

func TestCacheEvictExpired(t *testing.T) {
	c := newDecisionCache(10 * time.Millisecond)

	c.put(cacheRequest("alice", "event_receiver:read", "r1", 1), Decision{Allowed: true})
	c.put(cacheRequest("bob", "event_receiver:read", "r1", 1), Decision{Allowed: true})

	// Stop the background sweeper so the explicit eviction below is the
	// one that observes the expired entries.
	c.stop()
	time.Sleep(30 * time.Millisecond)

	if evicted := c.evictExpired(); evicted != 2 {
		t.Errorf("evicted = %d, want 2", evicted)
	}
	if got := c.size(); got != 0 {
		t.Errorf("size after eviction = %d, want 0", got)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := newDecisionCache(time.Minute)
	defer c.stop()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := fmt.Sprintf("r%d", j%10)
				req := cacheRequest(fmt.Sprintf("p%d", n), "event:read", id, int64(j))
				c.put(req, Decision{Allowed: j%2 == 0})
				c.get(req)
				if j%25 == 0 {
					c.invalidateResource(ResourceEventReceiver, id)
				}
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkCacheGet(b *testing.B) {
	c := newDecisionCache(time.Minute)
	defer c.stop()

	req := cacheRequest("alice", "event_receiver:read", "r1", 1)
	c.put(req, Decision{Allowed: true})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.get(req)
	}
}

func BenchmarkCacheInvalidateResource(b *testing.B) {
	c := newDecisionCache(time.Minute)
	defer c.stop()

	for i := 0; i < 1000; i++ {
		c.put(cacheRequest(fmt.Sprintf("p%d", i), "event:read", fmt.Sprintf("r%d", i%50), 1), Decision{})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.invalidateResource(ResourceEventReceiver, fmt.Sprintf("r%d", i%50))
	}
}
