// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/eventprovenance/gatekeeper/internal/logging"
	"github.com/eventprovenance/gatekeeper/internal/metrics"
)

// BreakerConfig holds circuit breaker settings for the policy engine.
type BreakerConfig struct {
	// Name identifies the breaker in logs and metrics. One breaker is
	// shared per policy-engine endpoint.
	Name string

	// FailureThreshold is the number of consecutive breaker-relevant
	// failures that opens the breaker. Default: 5.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before permitting
	// a half-open trial. Default: 30s.
	OpenTimeout time.Duration

	// HalfOpenMaxCalls is the number of trial calls permitted while
	// half-open. Default: 1.
	HalfOpenMaxCalls uint32
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// breaker wraps gobreaker around remote policy evaluations. It tracks
// engine availability, not decision outcome: a well-formed deny is a
// success here, and only breaker-relevant errors (per IsBreakerRelevant)
// count toward the failure threshold.
type breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[EngineDecision]
}

func newBreaker(cfg BreakerConfig) *breaker {
	if cfg.Name == "" {
		cfg.Name = "policy-engine"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls == 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Cancellations and other non-relevant errors are accounted as
		// successes: gobreaker has no neutral outcome, and resetting the
		// consecutive-failure counter on a non-engine fault never makes
		// the client less available than counting it would.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsBreakerRelevant(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			metrics.SetBreakerState(name, stateValue(to))
		},
	}

	metrics.SetBreakerState(cfg.Name, stateValue(gobreaker.StateClosed))

	return &breaker{
		name: cfg.Name,
		cb:   gobreaker.NewCircuitBreaker[EngineDecision](settings),
	}
}

// execute runs fn through the breaker. When the breaker is open (or the
// half-open trial budget is exhausted) it fails fast with ErrCircuitOpen
// without invoking fn; callers discriminate that case from an attempted
// and failed evaluation via errors.Is(err, ErrCircuitOpen).
func (b *breaker) execute(fn func() (EngineDecision, error)) (EngineDecision, error) {
	d, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return EngineDecision{}, ErrCircuitOpen
		}
		return EngineDecision{}, err
	}
	return d, nil
}

// state returns the current breaker state as a string for monitoring.
func (b *breaker) state() string {
	return b.cb.State().String()
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
