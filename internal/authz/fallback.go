// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

// fallbackDecision is the conservative local decision procedure used
// when the policy engine cannot be consulted. It considers only
// principal roles and resource ownership, deliberately ignoring group
// membership and fine-grained permissions: during an outage a false
// denial is acceptable, a false allow is not. It must never be more
// permissive than the policy engine's steady-state behavior.
//
// Rules, first match wins:
//  1. administrative role -> allow
//  2. resource owner      -> allow
//  3. otherwise           -> deny
func fallbackDecision(req Request) EngineDecision {
	if req.Principal.HasRole(AdminRole) {
		return EngineDecision{Allow: true, Reason: "fallback: administrative role"}
	}
	if req.Resource.OwnerID != "" && req.Resource.OwnerID == req.Principal.ID {
		return EngineDecision{Allow: true, Reason: "fallback: resource owner"}
	}
	return EngineDecision{Allow: false, Reason: "fallback: policy engine unavailable, access restricted to owners and administrators"}
}
