// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"context"
)

// EngineDecision is the structured output of a policy evaluation:
// allow/deny plus an optional reason.
type EngineDecision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

// Evaluator produces a policy decision for an authorization request.
// Implementations: RemoteEngine (network call to the policy engine
// service) and LocalEngine (embedded Casbin evaluator for single-node
// deployments and hermetic tests).
//
// A deny is a successful evaluation with Allow=false, never an error.
// Errors mean the evaluation itself could not be carried out.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (EngineDecision, error)

	// Name identifies the evaluator for logging and breaker metrics.
	Name() string
}

// engineInput is the wire shape of an evaluation request. Transport
// details (verb, path, headers) are configuration; only this structured
// shape is part of the contract.
type engineInput struct {
	Principal enginePrincipal `json:"principal"`
	Action    string          `json:"action"`
	Resource  engineResource  `json:"resource"`
}

type enginePrincipal struct {
	ID          string   `json:"id"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Groups      []string `json:"groups,omitempty"`
}

type engineResource struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	OwnerID   string   `json:"owner_id,omitempty"`
	GroupID   string   `json:"group_id,omitempty"`
	MemberIDs []string `json:"member_ids,omitempty"`
	Version   int64    `json:"version"`
}

// newEngineInput maps a Request onto the engine wire shape.
func newEngineInput(req Request) engineInput {
	return engineInput{
		Principal: enginePrincipal{
			ID:          req.Principal.ID,
			Roles:       req.Principal.Roles,
			Permissions: req.Principal.Permissions,
			Groups:      req.Principal.Groups,
		},
		Action: req.Action,
		Resource: engineResource{
			Type:      string(req.Resource.Type),
			ID:        req.Resource.ID,
			OwnerID:   req.Resource.OwnerID,
			GroupID:   req.Resource.GroupID,
			MemberIDs: req.Resource.MemberIDs,
			Version:   req.Resource.Version,
		},
	}
}
