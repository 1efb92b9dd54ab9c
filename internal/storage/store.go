// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

// Package storage provides the domain repositories for event receivers,
// event receiver groups, and events.
//
// Every mutation bumps the record's version monotonically and hands a
// resource-updated notification to the configured emitter before the
// mutation returns, so cache invalidation is sequenced with the write.
// Two implementations share the Store interface: MemoryStore for tests
// and embedded use, BadgerStore for durable single-node deployments.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// Resource type names used in update notifications. They match the
// authorization core's resource type enumeration.
const (
	TypeEventReceiver      = "event_receiver"
	TypeEventReceiverGroup = "event_receiver_group"
	TypeEvent              = "event"
)

// EventReceiver is a registered consumer of events.
type EventReceiver struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	GroupID     string    `json:"group_id,omitempty"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventReceiverGroup bundles receivers and carries the principal
// membership that receivers and events delegate to.
type EventReceiverGroup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	MemberIDs   []string  `json:"member_ids,omitempty"`
	ReceiverIDs []string  `json:"receiver_ids,omitempty"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Event is a provenance event delivered to a receiver.
type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ReceiverID string    `json:"receiver_id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	Payload    []byte    `json:"payload,omitempty"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpdateEmitter receives a notification for every committed mutation.
// The store calls it synchronously before the mutation returns; the
// authorization cache's invalidation handler sits behind it.
type UpdateEmitter interface {
	ResourceUpdated(ctx context.Context, resourceType, resourceID string, version int64) error
}

// Store is the repository contract consumed by the authorization
// resolver and the API layer.
type Store interface {
	GetEventReceiver(ctx context.Context, id string) (*EventReceiver, error)
	CreateEventReceiver(ctx context.Context, r *EventReceiver) error
	UpdateEventReceiver(ctx context.Context, r *EventReceiver) error
	DeleteEventReceiver(ctx context.Context, id string) error

	GetEventReceiverGroup(ctx context.Context, id string) (*EventReceiverGroup, error)
	CreateEventReceiverGroup(ctx context.Context, g *EventReceiverGroup) error
	UpdateEventReceiverGroup(ctx context.Context, g *EventReceiverGroup) error
	DeleteEventReceiverGroup(ctx context.Context, id string) error

	GetEvent(ctx context.Context, id string) (*Event, error)
	CreateEvent(ctx context.Context, e *Event) error

	Close() error
}

// MultiEmitter fans a notification out to several emitters in order.
// The local cache invalidator goes first so the node that performed
// the write never serves its own stale decision.
type MultiEmitter []UpdateEmitter

func (m MultiEmitter) ResourceUpdated(ctx context.Context, resourceType, resourceID string, version int64) error {
	for _, e := range m {
		if err := e.ResourceUpdated(ctx, resourceType, resourceID, version); err != nil {
			return err
		}
	}
	return nil
}

// noopEmitter discards notifications.
type noopEmitter struct{}

func (noopEmitter) ResourceUpdated(context.Context, string, string, int64) error { return nil }

// orNoop returns a usable emitter.
func orNoop(e UpdateEmitter) UpdateEmitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}
