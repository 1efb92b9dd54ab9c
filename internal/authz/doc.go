// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

// Package authz provides the policy-based authorization core.
//
// It decides whether a principal may perform an action on a provenance
// resource (event receivers, event receiver groups, events), combining
// a policy engine, a version-keyed decision cache, a circuit breaker,
// and a conservative local fallback.
//
// # Architecture
//
//	Request -> Auth (JWT) -> Authz Middleware -> Handler
//	                              |
//	                    ContextBuilder (resource facts)
//	                              |
//	                         PolicyClient
//	                        /     |      \
//	                    cache  breaker  fallback
//	                              |
//	                          Evaluator
//	                      (remote or embedded)
//
// # Decision Flow
//
// The PolicyClient resolves every request in strict order:
//
//  1. Cache lookup, keyed by (resource type, resource ID, principal,
//     action, resource version). A version bump makes stale entries
//     unreachable even before invalidation lands.
//  2. Policy evaluation through the circuit breaker. Successful
//     decisions are cached; evaluation failures trip the breaker
//     after consecutive failures.
//  3. Fallback when the breaker is open or evaluation fails: admins
//     and resource owners are allowed, everyone else is denied.
//     Fallback decisions are never cached.
//
// # Evaluators
//
// Two Evaluator implementations ship with the package:
//
//   - RemoteEngine posts requests to an external policy engine over
//     HTTP and classifies its failures (timeout, transport, status,
//     malformed response) for breaker accounting.
//   - LocalEngine evaluates an embedded Casbin RBAC policy in-process
//     for deployments without an external engine.
//
// # Middleware
//
// The HTTP middleware enforces a startup-declared route table mapping
// "METHOD /route/{pattern}" to a resource type, action, and ID
// parameter. Routes missing from the table are denied. Resource
// context is resolved before evaluation; an unresolvable resource is
// a 404, never a 403.
//
// # Thread Safety
//
// All components are safe for concurrent use. One PolicyClient should
// exist per policy-engine endpoint per process so that breaker state
// and cached decisions are shared across all request paths.
//
// # See Also
//
//   - internal/storage: domain repositories whose mutations feed
//     cache invalidation
//   - internal/eventbus: resource-updated event transport
//   - github.com/sony/gobreaker/v2: circuit breaker implementation
//   - github.com/casbin/casbin/v2: embedded policy engine
package authz
