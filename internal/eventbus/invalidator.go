// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/eventprovenance/gatekeeper/internal/logging"
	"github.com/eventprovenance/gatekeeper/internal/metrics"
)

// CacheInvalidator evicts cached authorization decisions for a
// resource. The policy client satisfies it through a thin adapter.
type CacheInvalidator interface {
	InvalidateResource(resourceType, resourceID string)
}

// Invalidator consumes resource-updated events and evicts the matching
// cached decisions. It implements suture's Service contract: Serve
// blocks until the context is canceled, and the supervisor restarts it
// on failure.
type Invalidator struct {
	subscriber message.Subscriber
	cache      CacheInvalidator
}

// NewInvalidator creates an invalidator over the given subscriber.
func NewInvalidator(subscriber message.Subscriber, cache CacheInvalidator) *Invalidator {
	return &Invalidator{
		subscriber: subscriber,
		cache:      cache,
	}
}

// Serve processes invalidation events until ctx is canceled.
//
// Malformed events are acked and dropped: redelivery cannot fix a
// payload that does not parse. Valid events are always acked; eviction
// is idempotent, so at-least-once delivery needs no dedup here.
func (inv *Invalidator) Serve(ctx context.Context) error {
	messages, err := inv.subscriber.Subscribe(ctx, TopicResourceUpdated)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicResourceUpdated, err)
	}

	logging.Info().Str("topic", TopicResourceUpdated).Msg("Cache invalidator started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", TopicResourceUpdated)
			}
			inv.handle(msg)
		}
	}
}

func (inv *Invalidator) handle(msg *message.Message) {
	event, err := UnmarshalResourceUpdatedEvent(msg.Payload)
	if err != nil {
		logging.Warn().
			Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Dropping malformed resource updated event")
		metrics.RecordResourceEvent("unknown", "malformed")
		msg.Ack()
		return
	}

	inv.cache.InvalidateResource(event.ResourceType, event.ResourceID)
	metrics.RecordResourceEvent(event.ResourceType, "invalidated")

	logging.Debug().
		Str("resource_type", event.ResourceType).
		Str("resource_id", event.ResourceID).
		Int64("version", event.Version).
		Msg("Invalidated cached decisions for resource")

	msg.Ack()
}
