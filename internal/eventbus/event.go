// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package eventbus

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TopicResourceUpdated is the subject resource-updated events are
// published on.
const TopicResourceUpdated = "gatekeeper.resource.updated"

// SchemaVersion is the current wire schema version of
// ResourceUpdatedEvent. Consumers reject events with a newer major
// schema than they understand.
const SchemaVersion = 1

// ResourceUpdatedEvent announces that a resource changed (create,
// update, or delete) and at which version. Consumers invalidate their
// cached decisions for the resource.
type ResourceUpdatedEvent struct {
	ID            string    `json:"id"`
	SchemaVersion int       `json:"schema_version"`
	ResourceType  string    `json:"resource_type"`
	ResourceID    string    `json:"resource_id"`
	Version       int64     `json:"version"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewResourceUpdatedEvent builds an event with a fresh ID and
// timestamp.
func NewResourceUpdatedEvent(resourceType, resourceID string, version int64) *ResourceUpdatedEvent {
	return &ResourceUpdatedEvent{
		ID:            uuid.New().String(),
		SchemaVersion: SchemaVersion,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		Version:       version,
		OccurredAt:    time.Now().UTC(),
	}
}

// Marshal serializes the event for the wire.
func (e *ResourceUpdatedEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalResourceUpdatedEvent parses a wire payload and validates
// the fields invalidation depends on.
func UnmarshalResourceUpdatedEvent(data []byte) (*ResourceUpdatedEvent, error) {
	var e ResourceUpdatedEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal resource updated event: %w", err)
	}
	if e.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d", e.SchemaVersion)
	}
	if e.ResourceType == "" || e.ResourceID == "" {
		return nil, fmt.Errorf("resource updated event missing resource type or id")
	}
	return &e, nil
}
