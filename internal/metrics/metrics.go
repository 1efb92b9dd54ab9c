// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

// Package metrics provides Prometheus collectors for the authorization core,
// enabling production observability and alerting.
//
// Metrics Categories:
//   - Authorization Decisions: allow/deny counts by source, latency histograms
//   - Cache Performance: hit/miss rates, invalidations, size
//   - Circuit Breaker: state gauge, trip counter
//   - Fallback: invocation counter
//
// Usage:
//
//	metrics.RecordDecision("event_receiver", "event_receiver:update", "policy_engine", true, 12*time.Millisecond)
//	metrics.RecordCacheHit()
//	metrics.SetBreakerState("policy-engine", 2)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal counts authorization decisions by resource type, action,
	// decision source, and outcome.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"resource_type", "action", "source", "decision"},
	)

	// DecisionDuration tracks the latency of authorization decisions.
	// Cache hits and fallback land in the microsecond buckets; remote
	// evaluations include network latency.
	DecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authz_decision_duration_seconds",
			Help:    "Duration of authorization decisions in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"source"},
	)

	// DeniedTotal specifically tracks denials per resource type for alerting.
	DeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denied_total",
			Help: "Total number of authorization denials (for alerting)",
		},
		[]string{"resource_type"},
	)

	// CacheHitsTotal counts decision cache hits.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_cache_hits_total",
			Help: "Total number of decision cache hits",
		},
	)

	// CacheMissesTotal counts decision cache misses.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_cache_misses_total",
			Help: "Total number of decision cache misses",
		},
	)

	// CacheInvalidationsTotal counts resource-level cache invalidations.
	CacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_cache_invalidations_total",
			Help: "Total number of decision cache invalidations",
		},
		[]string{"resource_type"},
	)

	// CacheEvictionsTotal counts TTL-expired entries removed by the sweeper.
	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_cache_evictions_total",
			Help: "Total number of decision cache evictions (TTL expiry)",
		},
	)

	// CacheSize tracks the current number of cached decisions.
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authz_cache_entries",
			Help: "Current number of entries in the decision cache",
		},
	)

	// FallbackTotal counts invocations of the local fallback procedure.
	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_fallback_total",
			Help: "Total number of fallback decision invocations",
		},
		[]string{"decision"},
	)

	// BreakerState exposes the circuit breaker state per engine endpoint
	// (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "authz_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// BreakerTransitionsTotal counts breaker state transitions.
	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// EngineErrorsTotal counts remote policy engine evaluation failures.
	EngineErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_engine_errors_total",
			Help: "Total number of policy engine evaluation failures",
		},
		[]string{"kind"}, // "timeout", "transport", "malformed_response", "status"
	)

	// AuditEventsTotal counts audit events logged.
	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_audit_events_total",
			Help: "Total number of audit events logged",
		},
		[]string{"decision"},
	)

	// AuditDroppedTotal counts audit events dropped due to buffer overflow.
	AuditDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_audit_dropped_total",
			Help: "Total number of audit events dropped (buffer overflow)",
		},
	)

	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration tracks HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ActiveRequests tracks in-flight HTTP requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_active",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// ResourceEventsTotal counts resource-updated events consumed from the bus.
	ResourceEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_resource_events_total",
			Help: "Total number of resource-updated events consumed",
		},
		[]string{"resource_type", "result"}, // result: "applied", "malformed"
	)
)

// RecordDecision records a completed authorization decision.
func RecordDecision(resourceType, action, source string, allowed bool, duration time.Duration) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	DecisionsTotal.WithLabelValues(resourceType, action, source, decision).Inc()
	DecisionDuration.WithLabelValues(source).Observe(duration.Seconds())
	if !allowed {
		DeniedTotal.WithLabelValues(resourceType).Inc()
	}
}

// RecordCacheHit records a decision cache hit.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a decision cache miss.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheInvalidation records a resource-level invalidation.
func RecordCacheInvalidation(resourceType string) {
	CacheInvalidationsTotal.WithLabelValues(resourceType).Inc()
}

// RecordCacheEvictions adds n TTL-expired evictions.
func RecordCacheEvictions(n int) {
	CacheEvictionsTotal.Add(float64(n))
}

// UpdateCacheSize updates the cache size gauge.
func UpdateCacheSize(size int) {
	CacheSize.Set(float64(size))
}

// RecordFallback records a fallback invocation and its outcome.
func RecordFallback(allowed bool) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	FallbackTotal.WithLabelValues(decision).Inc()
}

// SetBreakerState updates the breaker state gauge.
func SetBreakerState(name string, state int) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordBreakerTransition records a breaker state transition.
func RecordBreakerTransition(name, from, to string) {
	BreakerTransitionsTotal.WithLabelValues(name, from, to).Inc()
}

// RecordEngineError records a policy engine evaluation failure by kind.
func RecordEngineError(kind string) {
	EngineErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordAuditEvent records an audit event being logged.
func RecordAuditEvent(allowed bool) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	AuditEventsTotal.WithLabelValues(decision).Inc()
}

// RecordAuditDropped records an audit event being dropped.
func RecordAuditDropped() {
	AuditDroppedTotal.Inc()
}

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		ActiveRequests.Inc()
	} else {
		ActiveRequests.Dec()
	}
}

// RecordResourceEvent records a consumed resource-updated event.
func RecordResourceEvent(resourceType, result string) {
	ResourceEventsTotal.WithLabelValues(resourceType, result).Inc()
}
