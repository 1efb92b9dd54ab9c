// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventprovenance/gatekeeper/internal/storage"
)

// ContextBuilder populates the ownership, group, membership, and
// version facts of a resource by querying the domain repositories.
//
// It is read-only and does not cache: caching of authorization
// decisions is the decision cache's job, and resource facts must be
// fresh at decision time.
//
// Each resource type has its own loader strategy. Resources that derive
// membership transitively through a group (a receiver in a group, an
// event whose receiver belongs to a group) have the whole chain
// resolved in one Load call; callers never do multi-hop resolution.
type ContextBuilder struct {
	loaders map[ResourceType]resourceLoader
}

// resourceLoader resolves one resource type.
type resourceLoader interface {
	load(ctx context.Context, id string) (ResourceRef, error)
}

// NewContextBuilder creates a builder over the given repositories.
func NewContextBuilder(store storage.Store) *ContextBuilder {
	return &ContextBuilder{
		loaders: map[ResourceType]resourceLoader{
			ResourceEventReceiver:      &receiverLoader{store: store},
			ResourceEventReceiverGroup: &groupLoader{store: store},
			ResourceEvent:              &eventLoader{store: store},
		},
	}
}

// Load returns a fully populated ResourceRef for the resource.
//
// Error contract: ErrResourceNotFound when the reference cannot be
// resolved (the middleware answers "not found", not "forbidden"); any
// other error is an infrastructure failure and is never interpreted as
// a denial.
func (b *ContextBuilder) Load(ctx context.Context, resourceType ResourceType, id string) (ResourceRef, error) {
	loader, ok := b.loaders[resourceType]
	if !ok {
		return ResourceRef{}, fmt.Errorf("unknown resource type %q", resourceType)
	}
	return loader.load(ctx, id)
}

// translateStoreErr maps repository not-found onto the core's sentinel
// and wraps everything else as an infrastructure failure.
func translateStoreErr(err error, resourceType ResourceType, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", resourceType, id, ErrResourceNotFound)
	}
	return fmt.Errorf("load %s %s: %w", resourceType, id, err)
}

// receiverLoader resolves an event receiver. A receiver in a group
// delegates membership to that group's members.
type receiverLoader struct {
	store storage.Store
}

func (l *receiverLoader) load(ctx context.Context, id string) (ResourceRef, error) {
	r, err := l.store.GetEventReceiver(ctx, id)
	if err != nil {
		return ResourceRef{}, translateStoreErr(err, ResourceEventReceiver, id)
	}

	ref := ResourceRef{
		Type:    ResourceEventReceiver,
		ID:      r.ID,
		OwnerID: r.OwnerID,
		GroupID: r.GroupID,
		Version: r.Version,
	}

	if r.GroupID != "" {
		g, err := l.store.GetEventReceiverGroup(ctx, r.GroupID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// Dangling group reference: the receiver itself exists, so
			// keep the ref with no members rather than failing the load.
		case err != nil:
			return ResourceRef{}, translateStoreErr(err, ResourceEventReceiverGroup, r.GroupID)
		default:
			ref.MemberIDs = g.MemberIDs
		}
	}

	return ref, nil
}

// groupLoader resolves an event receiver group. Groups carry their own
// members directly.
type groupLoader struct {
	store storage.Store
}

func (l *groupLoader) load(ctx context.Context, id string) (ResourceRef, error) {
	g, err := l.store.GetEventReceiverGroup(ctx, id)
	if err != nil {
		return ResourceRef{}, translateStoreErr(err, ResourceEventReceiverGroup, id)
	}

	return ResourceRef{
		Type:      ResourceEventReceiverGroup,
		ID:        g.ID,
		OwnerID:   g.OwnerID,
		GroupID:   g.ID,
		MemberIDs: g.MemberIDs,
		Version:   g.Version,
	}, nil
}

// eventLoader resolves an event through the full chain:
// event -> receiver -> group -> members.
type eventLoader struct {
	store storage.Store
}

func (l *eventLoader) load(ctx context.Context, id string) (ResourceRef, error) {
	e, err := l.store.GetEvent(ctx, id)
	if err != nil {
		return ResourceRef{}, translateStoreErr(err, ResourceEvent, id)
	}

	ref := ResourceRef{
		Type:    ResourceEvent,
		ID:      e.ID,
		OwnerID: e.OwnerID,
		Version: e.Version,
	}

	if e.ReceiverID == "" {
		return ref, nil
	}

	r, err := l.store.GetEventReceiver(ctx, e.ReceiverID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// The event outlived its receiver; authorize on the event's own facts.
		return ref, nil
	case err != nil:
		return ResourceRef{}, translateStoreErr(err, ResourceEventReceiver, e.ReceiverID)
	}

	ref.GroupID = r.GroupID
	if r.GroupID != "" {
		g, err := l.store.GetEventReceiverGroup(ctx, r.GroupID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return ResourceRef{}, translateStoreErr(err, ResourceEventReceiverGroup, r.GroupID)
		default:
			ref.MemberIDs = g.MemberIDs
		}
	}

	return ref, nil
}
