// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// recordingCache records invalidation calls.
type recordingCache struct {
	mu    sync.Mutex
	calls []string
	seen  chan struct{}
}

func newRecordingCache() *recordingCache {
	return &recordingCache{seen: make(chan struct{}, 100)}
}

func (c *recordingCache) InvalidateResource(resourceType, resourceID string) {
	c.mu.Lock()
	c.calls = append(c.calls, resourceType+"/"+resourceID)
	c.mu.Unlock()
	c.seen <- struct{}{}
}

func (c *recordingCache) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *recordingCache) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for invalidation %d of %d", i+1, n)
		}
	}
}

// busHarness runs a publisher and invalidator over an in-process
// gochannel transport.
func busHarness(t *testing.T) (*Publisher, *recordingCache, context.CancelFunc) {
	t.Helper()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	publisher := NewPublisher(pubsub)
	cache := newRecordingCache()
	inv := NewInvalidator(pubsub, cache)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		close(ready)
		inv.Serve(ctx)
	}()
	<-ready
	// Give Subscribe a moment to register before the first publish.
	time.Sleep(20 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		pubsub.Close()
	})
	return publisher, cache, cancel
}

func TestInvalidatorEvictsOnResourceUpdate(t *testing.T) {
	publisher, cache, _ := busHarness(t)

	if err := publisher.ResourceUpdated(context.Background(), "event_receiver", "r1", 2); err != nil {
		t.Fatalf("ResourceUpdated: %v", err)
	}
	cache.wait(t, 1)

	got := cache.snapshot()
	if len(got) != 1 || got[0] != "event_receiver/r1" {
		t.Errorf("invalidations = %v", got)
	}
}

func TestInvalidatorHandlesMultipleEvents(t *testing.T) {
	publisher, cache, _ := busHarness(t)
	ctx := context.Background()

	publisher.ResourceUpdated(ctx, "event_receiver", "r1", 1)
	publisher.ResourceUpdated(ctx, "event_receiver_group", "g1", 4)
	publisher.ResourceUpdated(ctx, "event", "e1", 1)
	cache.wait(t, 3)

	got := cache.snapshot()
	if len(got) != 3 {
		t.Fatalf("invalidations = %v, want 3", got)
	}
}

func TestInvalidatorDropsMalformedEvents(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	cache := newRecordingCache()
	inv := NewInvalidator(pubsub, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go inv.Serve(ctx)
	time.Sleep(20 * time.Millisecond)

	// Garbage first, then a valid event. The consumer must survive the
	// garbage and still process what follows.
	if err := pubsub.Publish(TopicResourceUpdated, message.NewMessage("m1", []byte("not json"))); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := NewPublisher(pubsub).ResourceUpdated(ctx, "event", "e1", 1); err != nil {
		t.Fatalf("ResourceUpdated: %v", err)
	}
	cache.wait(t, 1)

	got := cache.snapshot()
	if len(got) != 1 || got[0] != "event/e1" {
		t.Errorf("invalidations = %v, want only the valid event", got)
	}
	pubsub.Close()
}

func TestInvalidatorStopsOnContextCancel(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()
	inv := NewInvalidator(pubsub, newRecordingCache())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- inv.Serve(ctx)
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func TestPublisherClosedRejectsPublish(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	publisher := NewPublisher(pubsub)

	if err := publisher.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := publisher.ResourceUpdated(context.Background(), "event", "e1", 1); err == nil {
		t.Error("publish after Close should fail")
	}
	// Close is idempotent.
	if err := publisher.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
