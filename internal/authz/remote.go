// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// RemoteEngineConfig holds configuration for the remote policy engine
// client.
type RemoteEngineConfig struct {
	// URL is the decision endpoint of the policy engine service.
	URL string

	// Timeout is the per-call deadline for an evaluation.
	// A timeout is a breaker-relevant failure. Default: 5s.
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	// When nil a client with the configured timeout is used.
	HTTPClient *http.Client
}

// RemoteEngine evaluates authorization requests against the remote
// policy engine over HTTP. The engine is a black box: the client only
// depends on the structured input/output shape, not a policy language.
type RemoteEngine struct {
	url    string
	client *http.Client
}

// NewRemoteEngine creates a remote policy engine client.
func NewRemoteEngine(cfg RemoteEngineConfig) (*RemoteEngine, error) {
	if cfg.URL == "" {
		return nil, errors.New("remote engine: URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &RemoteEngine{
		url:    cfg.URL,
		client: client,
	}, nil
}

// Name implements Evaluator.
func (e *RemoteEngine) Name() string {
	return "remote"
}

// Evaluate sends the request to the policy engine and returns its
// decision. All failure modes are classified as EngineError so the
// circuit breaker can distinguish engine faults from cancellations.
func (e *RemoteEngine) Evaluate(ctx context.Context, req Request) (EngineDecision, error) {
	body, err := json.Marshal(newEngineInput(req))
	if err != nil {
		// Marshal of plain structs does not fail in practice; classify
		// defensively rather than panic.
		return EngineDecision{}, &EngineError{Kind: EngineErrMalformed, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return EngineDecision{}, &EngineError{Kind: EngineErrTransport, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return EngineDecision{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read path

	if resp.StatusCode != http.StatusOK {
		// Drain a bounded amount so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return EngineDecision{}, &EngineError{
			Kind: EngineErrStatus,
			Err:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var out EngineDecision
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return EngineDecision{}, &EngineError{Kind: EngineErrMalformed, Err: err}
	}

	return out, nil
}

// classifyTransportError maps an http.Client error onto an EngineError
// kind. Caller-initiated cancellation is not an engine fault.
func classifyTransportError(ctx context.Context, err error) *EngineError {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &EngineError{Kind: EngineErrCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &EngineError{Kind: EngineErrTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &EngineError{Kind: EngineErrTimeout, Err: err}
	}
	return &EngineError{Kind: EngineErrTransport, Err: err}
}
