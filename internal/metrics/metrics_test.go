// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDecision_Allowed(t *testing.T) {
	before := testutil.ToFloat64(DecisionsTotal.WithLabelValues("event", "event:create", "policy_engine", "allowed"))
	deniedBefore := testutil.ToFloat64(DeniedTotal.WithLabelValues("event"))

	RecordDecision("event", "event:create", "policy_engine", true, 5*time.Millisecond)

	after := testutil.ToFloat64(DecisionsTotal.WithLabelValues("event", "event:create", "policy_engine", "allowed"))
	if after != before+1 {
		t.Errorf("DecisionsTotal = %v, want %v", after, before+1)
	}

	deniedAfter := testutil.ToFloat64(DeniedTotal.WithLabelValues("event"))
	if deniedAfter != deniedBefore {
		t.Error("allowed decision must not increment DeniedTotal")
	}
}

func TestRecordDecision_Denied(t *testing.T) {
	before := testutil.ToFloat64(DeniedTotal.WithLabelValues("event_receiver"))

	RecordDecision("event_receiver", "event_receiver:delete", "fallback", false, time.Microsecond)

	after := testutil.ToFloat64(DeniedTotal.WithLabelValues("event_receiver"))
	if after != before+1 {
		t.Errorf("DeniedTotal = %v, want %v", after, before+1)
	}
}

func TestCacheCounters(t *testing.T) {
	hitsBefore := testutil.ToFloat64(CacheHitsTotal)
	missesBefore := testutil.ToFloat64(CacheMissesTotal)

	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheMiss()

	if got := testutil.ToFloat64(CacheHitsTotal); got != hitsBefore+1 {
		t.Errorf("CacheHitsTotal = %v, want %v", got, hitsBefore+1)
	}
	if got := testutil.ToFloat64(CacheMissesTotal); got != missesBefore+2 {
		t.Errorf("CacheMissesTotal = %v, want %v", got, missesBefore+2)
	}
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState("policy-engine", 2)
	if got := testutil.ToFloat64(BreakerState.WithLabelValues("policy-engine")); got != 2 {
		t.Errorf("BreakerState = %v, want 2", got)
	}

	SetBreakerState("policy-engine", 0)
	if got := testutil.ToFloat64(BreakerState.WithLabelValues("policy-engine")); got != 0 {
		t.Errorf("BreakerState = %v, want 0", got)
	}
}

func TestRecordFallback(t *testing.T) {
	before := testutil.ToFloat64(FallbackTotal.WithLabelValues("denied"))
	RecordFallback(false)
	if got := testutil.ToFloat64(FallbackTotal.WithLabelValues("denied")); got != before+1 {
		t.Errorf("FallbackTotal = %v, want %v", got, before+1)
	}
}

func TestUpdateCacheSize(t *testing.T) {
	UpdateCacheSize(42)
	if got := testutil.ToFloat64(CacheSize); got != 42 {
		t.Errorf("CacheSize = %v, want 42", got)
	}
}
