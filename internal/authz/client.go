// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"context"
	"errors"
	"time"

	"github.com/eventprovenance/gatekeeper/internal/logging"
	"github.com/eventprovenance/gatekeeper/internal/metrics"
)

// ClientConfig holds configuration for the policy client.
type ClientConfig struct {
	// CacheTTL is how long decisions stay cached. The TTL is a safety
	// net against missed invalidation events; invalidation-on-write is
	// the primary consistency mechanism. Default: 5m.
	CacheTTL time.Duration

	// Breaker configures the circuit breaker guarding the evaluator.
	Breaker BreakerConfig
}

// DefaultClientConfig returns production defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		CacheTTL: 5 * time.Minute,
		Breaker:  DefaultBreakerConfig("policy-engine"),
	}
}

// PolicyClient produces authorization decisions by composing a
// cache-first lookup, circuit-breaker-guarded policy evaluation, and a
// conservative local fallback.
//
// One PolicyClient (or at least one shared cache and breaker) should
// exist per policy-engine endpoint per process, constructed once at
// startup and passed by handle into every request path, so breaker
// state and cached decisions stay coherent process-wide. All methods
// are safe for concurrent use.
type PolicyClient struct {
	evaluator Evaluator
	cache     *decisionCache
	breaker   *breaker
}

// NewPolicyClient creates a policy client around the given evaluator.
func NewPolicyClient(evaluator Evaluator, cfg ClientConfig) *PolicyClient {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &PolicyClient{
		evaluator: evaluator,
		cache:     newDecisionCache(cfg.CacheTTL),
		breaker:   newBreaker(cfg.Breaker),
	}
}

// Authorize produces a decision for the request.
//
// Order is strict: cache, then breaker-guarded evaluator, then
// fallback. Circuit-open and evaluation failures are fully recovered
// here via fallback and never escape; the only error returned is the
// caller's own cancellation.
//
// Fallback decisions are never cached: fallback is deliberately coarser
// than real policy and must be re-evaluated once the engine recovers.
func (c *PolicyClient) Authorize(ctx context.Context, req Request) (Decision, error) {
	start := time.Now()

	if cached, ok := c.cache.get(req); ok {
		metrics.RecordCacheHit()
		d := Decision{
			Allowed: cached.Allowed,
			Reason:  cached.Reason,
			Source:  SourceCache,
			Latency: time.Since(start),
		}
		c.record(req, d)
		return d, nil
	}
	metrics.RecordCacheMiss()

	out, err := c.breaker.execute(func() (EngineDecision, error) {
		return c.evaluator.Evaluate(ctx, req)
	})
	if err == nil {
		d := Decision{
			Allowed: out.Allow,
			Reason:  out.Reason,
			Source:  SourcePolicyEngine,
			Latency: time.Since(start),
		}
		c.cache.put(req, d)
		c.record(req, d)
		return d, nil
	}

	// A request the caller abandoned gets no decision at all.
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return Decision{}, ctx.Err()
	}

	if errors.Is(err, ErrCircuitOpen) {
		logging.Debug().
			Str("principal", req.Principal.ID).
			Str("action", req.Action).
			Msg("Circuit open, using fallback")
	} else {
		var ee *EngineError
		if errors.As(err, &ee) {
			metrics.RecordEngineError(ee.Kind)
		} else {
			metrics.RecordEngineError(EngineErrTransport)
		}
		logging.Warn().
			Err(err).
			Str("principal", req.Principal.ID).
			Str("action", req.Action).
			Msg("Policy engine evaluation failed, using fallback")
	}

	out = fallbackDecision(req)
	metrics.RecordFallback(out.Allow)
	d := Decision{
		Allowed: out.Allow,
		Reason:  out.Reason,
		Source:  SourceFallback,
		Latency: time.Since(start),
	}
	c.record(req, d)
	return d, nil
}

// record forwards decision metrics.
func (c *PolicyClient) record(req Request, d Decision) {
	metrics.RecordDecision(string(req.Resource.Type), req.Action, string(d.Source), d.Allowed, d.Latency)
}

// InvalidateResource evicts every cached decision for the resource,
// independent of principal, action, or cached version. This is the
// handler for resource-updated events; it is idempotent.
func (c *PolicyClient) InvalidateResource(resourceType ResourceType, resourceID string) {
	c.cache.invalidateResource(resourceType, resourceID)
}

// EvictExpired removes TTL-expired cache entries. Callable on a timer;
// not required for correctness.
func (c *PolicyClient) EvictExpired() int {
	return c.cache.evictExpired()
}

// CacheSize returns the current number of cached decisions.
func (c *PolicyClient) CacheSize() int {
	return c.cache.size()
}

// BreakerState returns the breaker state string for health reporting.
func (c *PolicyClient) BreakerState() string {
	return c.breaker.state()
}

// Close releases background resources.
func (c *PolicyClient) Close() {
	c.cache.stop()
}
