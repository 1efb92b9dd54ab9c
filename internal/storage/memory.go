// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and embedded use.
// Safe for concurrent access.
type MemoryStore struct {
	mu        sync.RWMutex
	receivers map[string]*EventReceiver
	groups    map[string]*EventReceiverGroup
	events    map[string]*Event
	emitter   UpdateEmitter
}

// NewMemoryStore creates an empty in-memory store. The emitter may be
// nil, in which case update notifications are discarded.
func NewMemoryStore(emitter UpdateEmitter) *MemoryStore {
	return &MemoryStore{
		receivers: make(map[string]*EventReceiver),
		groups:    make(map[string]*EventReceiverGroup),
		events:    make(map[string]*Event),
		emitter:   orNoop(emitter),
	}
}

// GetEventReceiver returns a copy of the receiver.
func (s *MemoryStore) GetEventReceiver(_ context.Context, id string) (*EventReceiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.receivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// CreateEventReceiver stores a new receiver at version 1.
func (s *MemoryStore) CreateEventReceiver(ctx context.Context, r *EventReceiver) error {
	now := time.Now().UTC()
	r.Version = 1
	r.CreatedAt = now
	r.UpdatedAt = now

	s.mu.Lock()
	cp := *r
	s.receivers[r.ID] = &cp
	s.mu.Unlock()

	return s.emitter.ResourceUpdated(ctx, TypeEventReceiver, r.ID, r.Version)
}

// UpdateEventReceiver replaces the receiver, bumping its version.
func (s *MemoryStore) UpdateEventReceiver(ctx context.Context, r *EventReceiver) error {
	s.mu.Lock()
	existing, ok := s.receivers[r.ID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	r.Version = existing.Version + 1
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	s.receivers[r.ID] = &cp
	s.mu.Unlock()

	return s.emitter.ResourceUpdated(ctx, TypeEventReceiver, r.ID, r.Version)
}

// DeleteEventReceiver removes the receiver.
func (s *MemoryStore) DeleteEventReceiver(ctx context.Context, id string) error {
	s.mu.Lock()
	existing, ok := s.receivers[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	version := existing.Version + 1
	delete(s.receivers, id)
	s.mu.Unlock()

	return s.emitter.ResourceUpdated(ctx, TypeEventReceiver, id, version)
}

// GetEventReceiverGroup returns a copy of the group.
func (s *MemoryStore) GetEventReceiverGroup(_ context.Context, id string) (*EventReceiverGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	cp.MemberIDs = append([]string(nil), g.MemberIDs...)
	cp.ReceiverIDs = append([]string(nil), g.ReceiverIDs...)
	return &cp, nil
}

// CreateEventReceiverGroup stores a new group at version 1.
func (s *MemoryStore) CreateEventReceiverGroup(ctx context.Context, g *EventReceiverGroup) error {
	now := time.Now().UTC()
	g.Version = 1
	g.CreatedAt = now
	g.UpdatedAt = now

	s.mu.Lock()
	cp := *g
	s.groups[g.ID] = &cp
	s.mu.Unlock()

	return s.emitter.ResourceUpdated(ctx, TypeEventReceiverGroup, g.ID, g.Version)
}

// UpdateEventReceiverGroup replaces the group, bumping its version.
func (s *MemoryStore) UpdateEventReceiverGroup(ctx context.Context, g *EventReceiverGroup) error {
	s.mu.Lock()
	existing, ok := s.groups[g.ID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	g.Version = existing.Version + 1
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = time.Now().UTC()
	cp := *g
	s.groups[g.ID] = &cp
	s.mu.Unlock()

	return s.emitter.ResourceUpdated(ctx, TypeEventReceiverGroup, g.ID, g.Version)
}

// DeleteEventReceiverGroup removes the group.
func (s *MemoryStore) DeleteEventReceiverGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	existing, ok := s.groups[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	version := existing.Version + 1
	delete(s.groups, id)
	s.mu.Unlock()

	return s.emitter.ResourceUpdated(ctx, TypeEventReceiverGroup, id, version)
}

// GetEvent returns a copy of the event.
func (s *MemoryStore) GetEvent(_ context.Context, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// CreateEvent stores a new event at version 1. Events are immutable
// after creation; there is no update path.
func (s *MemoryStore) CreateEvent(ctx context.Context, e *Event) error {
	now := time.Now().UTC()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now

	s.mu.Lock()
	cp := *e
	s.events[e.ID] = &cp
	s.mu.Unlock()

	return s.emitter.ResourceUpdated(ctx, TypeEvent, e.ID, e.Version)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
