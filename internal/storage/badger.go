// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage.
const (
	receiverKeyPrefix = "receiver:"
	groupKeyPrefix    = "group:"
	eventKeyPrefix    = "event:"
)

// BadgerStore is a BadgerDB-backed Store suitable for durable
// single-node deployments.
//
// Mutations serialize through a single mutex so version bumps stay
// monotonic and the update notification is sequenced after the commit
// of the write it describes.
type BadgerStore struct {
	db      *badger.DB
	emitter UpdateEmitter
	mu      sync.Mutex
}

// OpenBadgerStore opens (or creates) a Badger-backed store at path.
// An empty path opens an in-memory database.
func OpenBadgerStore(path string, emitter UpdateEmitter) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db, emitter: orNoop(emitter)}, nil
}

// NewBadgerStore wraps an already-open database.
func NewBadgerStore(db *badger.DB, emitter UpdateEmitter) *BadgerStore {
	return &BadgerStore{db: db, emitter: orNoop(emitter)}
}

func (s *BadgerStore) getRecord(key string, out interface{}) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	return err
}

func (s *BadgerStore) setRecord(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) deleteRecord(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// GetEventReceiver returns the receiver by id.
func (s *BadgerStore) GetEventReceiver(_ context.Context, id string) (*EventReceiver, error) {
	var r EventReceiver
	if err := s.getRecord(receiverKeyPrefix+id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateEventReceiver stores a new receiver at version 1.
func (s *BadgerStore) CreateEventReceiver(ctx context.Context, r *EventReceiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	r.Version = 1
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := s.setRecord(receiverKeyPrefix+r.ID, r); err != nil {
		return err
	}
	return s.emitter.ResourceUpdated(ctx, TypeEventReceiver, r.ID, r.Version)
}

// UpdateEventReceiver replaces the receiver, bumping its version.
func (s *BadgerStore) UpdateEventReceiver(ctx context.Context, r *EventReceiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing EventReceiver
	if err := s.getRecord(receiverKeyPrefix+r.ID, &existing); err != nil {
		return err
	}
	r.Version = existing.Version + 1
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	if err := s.setRecord(receiverKeyPrefix+r.ID, r); err != nil {
		return err
	}
	return s.emitter.ResourceUpdated(ctx, TypeEventReceiver, r.ID, r.Version)
}

// DeleteEventReceiver removes the receiver.
func (s *BadgerStore) DeleteEventReceiver(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing EventReceiver
	if err := s.getRecord(receiverKeyPrefix+id, &existing); err != nil {
		return err
	}
	if err := s.deleteRecord(receiverKeyPrefix + id); err != nil {
		return err
	}
	return s.emitter.ResourceUpdated(ctx, TypeEventReceiver, id, existing.Version+1)
}

// GetEventReceiverGroup returns the group by id.
func (s *BadgerStore) GetEventReceiverGroup(_ context.Context, id string) (*EventReceiverGroup, error) {
	var g EventReceiverGroup
	if err := s.getRecord(groupKeyPrefix+id, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateEventReceiverGroup stores a new group at version 1.
func (s *BadgerStore) CreateEventReceiverGroup(ctx context.Context, g *EventReceiverGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	g.Version = 1
	g.CreatedAt = now
	g.UpdatedAt = now

	if err := s.setRecord(groupKeyPrefix+g.ID, g); err != nil {
		return err
	}
	return s.emitter.ResourceUpdated(ctx, TypeEventReceiverGroup, g.ID, g.Version)
}

// UpdateEventReceiverGroup replaces the group, bumping its version.
func (s *BadgerStore) UpdateEventReceiverGroup(ctx context.Context, g *EventReceiverGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing EventReceiverGroup
	if err := s.getRecord(groupKeyPrefix+g.ID, &existing); err != nil {
		return err
	}
	g.Version = existing.Version + 1
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = time.Now().UTC()

	if err := s.setRecord(groupKeyPrefix+g.ID, g); err != nil {
		return err
	}
	return s.emitter.ResourceUpdated(ctx, TypeEventReceiverGroup, g.ID, g.Version)
}

// DeleteEventReceiverGroup removes the group.
func (s *BadgerStore) DeleteEventReceiverGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing EventReceiverGroup
	if err := s.getRecord(groupKeyPrefix+id, &existing); err != nil {
		return err
	}
	if err := s.deleteRecord(groupKeyPrefix + id); err != nil {
		return err
	}
	return s.emitter.ResourceUpdated(ctx, TypeEventReceiverGroup, id, existing.Version+1)
}

// GetEvent returns the event by id.
func (s *BadgerStore) GetEvent(_ context.Context, id string) (*Event, error) {
	var e Event
	if err := s.getRecord(eventKeyPrefix+id, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEvent stores a new event at version 1.
func (s *BadgerStore) CreateEvent(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := s.setRecord(eventKeyPrefix+e.ID, e); err != nil {
		return err
	}
	return s.emitter.ResourceUpdated(ctx, TypeEvent, e.ID, e.Version)
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
