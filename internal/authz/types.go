// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"time"
)

// ResourceType enumerates the domain resources gated by the authorization core.
type ResourceType string

const (
	// ResourceEventReceiver identifies an event receiver.
	ResourceEventReceiver ResourceType = "event_receiver"

	// ResourceEventReceiverGroup identifies an event receiver group.
	ResourceEventReceiverGroup ResourceType = "event_receiver_group"

	// ResourceEvent identifies an event.
	ResourceEvent ResourceType = "event"
)

// String returns the string representation of the resource type.
func (t ResourceType) String() string {
	return string(t)
}

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceEventReceiver, ResourceEventReceiverGroup, ResourceEvent:
		return true
	}
	return false
}

// AdminRole is the role granting unconditional access, both in the
// policy engine's steady state and in the local fallback.
const AdminRole = "admin"

// Principal is the authenticated caller. It is derived once from an
// already-verified token upstream and immutable for the lifetime of
// one request.
type Principal struct {
	// ID is the stable identifier of the caller.
	ID string `json:"id"`

	// Roles is the set of role names held by the caller.
	Roles []string `json:"roles,omitempty"`

	// Permissions is the set of explicit permission strings.
	Permissions []string `json:"permissions,omitempty"`

	// Groups is the set of group identifiers the caller belongs to.
	Groups []string `json:"groups,omitempty"`
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role string) bool {
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal carries the exact
// permission string.
func (p *Principal) HasPermission(perm string) bool {
	if perm == "" {
		return false
	}
	for _, pm := range p.Permissions {
		if pm == perm {
			return true
		}
	}
	return false
}

// InGroup reports whether the principal belongs to the given group.
func (p *Principal) InGroup(group string) bool {
	if group == "" {
		return false
	}
	for _, g := range p.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// ResourceRef identifies the object an action targets, together with
// the ownership and membership facts needed to authorize it.
type ResourceRef struct {
	// Type is the resource type.
	Type ResourceType `json:"type"`

	// ID is the resource identifier. Empty for collection-level
	// actions such as create or list.
	ID string `json:"id,omitempty"`

	// OwnerID is the owning principal. Empty until assigned.
	OwnerID string `json:"owner_id,omitempty"`

	// GroupID is the owning group. Empty if the resource does not
	// belong to a group.
	GroupID string `json:"group_id,omitempty"`

	// MemberIDs is the set of member principals. Populated for
	// group-type resources and for resources that delegate
	// membership to a group.
	MemberIDs []string `json:"member_ids,omitempty"`

	// Version is the monotonically increasing resource version,
	// incremented by the owning domain on every mutation. A decision
	// cached against version N is unreachable once the persisted
	// version exceeds N.
	Version int64 `json:"version"`
}

// IsMember reports whether the given principal id appears in the
// resource's member set.
func (r *ResourceRef) IsMember(principalID string) bool {
	if principalID == "" {
		return false
	}
	for _, m := range r.MemberIDs {
		if m == principalID {
			return true
		}
	}
	return false
}

// Request is a single authorization question: may Principal perform
// Action on Resource. Pure value, no identity of its own.
type Request struct {
	Principal Principal   `json:"principal"`
	Action    string      `json:"action"`
	Resource  ResourceRef `json:"resource"`
}

// Source identifies which path produced an authorization decision.
type Source string

const (
	// SourcePolicyEngine marks a decision produced by the policy engine.
	SourcePolicyEngine Source = "policy_engine"

	// SourceCache marks a decision served from the decision cache.
	SourceCache Source = "cache"

	// SourceFallback marks a decision produced by the local fallback
	// procedure while the policy engine was unreachable.
	SourceFallback Source = "fallback"
)

// String returns the string representation of the decision source.
func (s Source) String() string {
	return string(s)
}

// Decision is the outcome of an authorization request. Immutable once
// produced; it may be cached or audited but never mutated.
type Decision struct {
	// Allowed is the allow/deny outcome.
	Allowed bool `json:"allowed"`

	// Reason is an optional human-readable explanation, typically
	// present on denials.
	Reason string `json:"reason,omitempty"`

	// Source is the path that produced the decision.
	Source Source `json:"source"`

	// Latency is the measured time to produce the decision.
	Latency time.Duration `json:"latency_ns"`
}
