// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrResourceNotFound is returned when a resource reference cannot
	// be resolved. Surfaced distinctly from authorization failure so
	// callers can respond "not found" rather than "forbidden".
	ErrResourceNotFound = errors.New("resource not found")

	// ErrCircuitOpen signals that the policy engine was deliberately
	// not contacted because the circuit breaker is open. Internal to
	// the policy client; it triggers fallback and never escapes to
	// the request boundary.
	ErrCircuitOpen = errors.New("policy engine circuit open")

	// ErrNoPrincipal is returned when a request carries no
	// authenticated principal.
	ErrNoPrincipal = errors.New("no principal in request context")
)

// Engine error kinds, used for failure classification and metrics.
const (
	// EngineErrTimeout marks a remote evaluation that exceeded its deadline.
	EngineErrTimeout = "timeout"

	// EngineErrTransport marks a connection-level failure.
	EngineErrTransport = "transport"

	// EngineErrStatus marks a non-success HTTP status from the engine.
	EngineErrStatus = "status"

	// EngineErrMalformed marks an unparseable engine response.
	EngineErrMalformed = "malformed_response"

	// EngineErrCanceled marks a caller-initiated cancellation. Not
	// breaker-relevant: the engine was not at fault.
	EngineErrCanceled = "canceled"
)

// EngineError is a remote policy engine evaluation failure. The Kind
// determines whether the failure counts toward the circuit breaker's
// failure threshold.
type EngineError struct {
	Kind string
	Err  error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("policy engine %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// BreakerRelevant reports whether the failure counts toward the
// breaker threshold. Timeouts, transport errors, server statuses, and
// malformed responses track engine availability; cancellations do not.
func (e *EngineError) BreakerRelevant() bool {
	return e.Kind != EngineErrCanceled
}

// IsBreakerRelevant classifies an arbitrary error for breaker
// accounting. Only engine failures the engine is responsible for count;
// a well-formed deny is not an error at all and never reaches here.
func IsBreakerRelevant(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.BreakerRelevant()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Unclassified errors from an evaluator are treated as engine
	// failures. Cache/fallback paths never produce errors.
	return err != nil
}
