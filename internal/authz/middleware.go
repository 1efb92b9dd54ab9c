// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eventprovenance/gatekeeper/internal/logging"
)

// RouteRule declares the authorization requirements of one route.
type RouteRule struct {
	// Resource is the resource type the route operates on.
	Resource ResourceType

	// Action is the policy action, e.g. "event_receiver:read".
	Action string

	// IDParam names the chi URL parameter carrying the resource ID.
	// Empty for collection routes (create, list) that have no concrete
	// resource instance; those are authorized on type and action alone.
	IDParam string

	// Public marks the route as requiring no authorization at all.
	Public bool
}

// RouteTable maps "METHOD /route/{pattern}" keys to rules. It is built
// once at startup; requests never mutate it, so lookups need no lock.
type RouteTable map[string]RouteRule

// Add registers a rule for a method and chi route pattern.
func (t RouteTable) Add(method, pattern string, rule RouteRule) RouteTable {
	t[method+" "+pattern] = rule
	return t
}

// Middleware enforces the route table on every request that passes
// through it. Routes absent from the table are denied: a route someone
// forgot to map fails closed, not open.
type Middleware struct {
	client  *PolicyClient
	builder *ContextBuilder
	audit   *AuditLogger
	table   RouteTable
}

// NewMiddleware creates the authorization middleware. The audit logger
// may be nil to disable auditing.
func NewMiddleware(client *PolicyClient, builder *ContextBuilder, audit *AuditLogger, table RouteTable) *Middleware {
	return &Middleware{
		client:  client,
		builder: builder,
		audit:   audit,
		table:   table,
	}
}

// Handler is the chi middleware. It must be mounted inline (With or a
// route group) so the matched route pattern is available on the
// request context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		rule, ok := m.table[r.Method+" "+pattern]
		if !ok {
			logging.Warn().
				Str("method", r.Method).
				Str("pattern", pattern).
				Msg("Route missing from authorization table, denying")
			m.auditDecision(r, rule, Principal{}, "", Decision{
				Reason:  "route not mapped",
				Source:  SourceFallback,
				Latency: time.Since(start),
			})
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if rule.Public {
			next.ServeHTTP(w, r)
			return
		}

		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			m.auditDecision(r, rule, Principal{}, "", Decision{
				Reason:  "no authentication context",
				Source:  SourceFallback,
				Latency: time.Since(start),
			})
			http.Error(w, "Forbidden: no authentication context", http.StatusForbidden)
			return
		}

		resource := ResourceRef{Type: rule.Resource}
		resourceID := ""
		if rule.IDParam != "" {
			resourceID = chi.URLParam(r, rule.IDParam)
			loaded, err := m.builder.Load(r.Context(), rule.Resource, resourceID)
			if errors.Is(err, ErrResourceNotFound) {
				// Not-found beats forbidden: there is nothing to protect.
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			if err != nil {
				logging.Error().Err(err).
					Str("resource_type", string(rule.Resource)).
					Str("resource_id", resourceID).
					Msg("Resource context resolution failed")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			resource = loaded
		}

		decision, err := m.client.Authorize(r.Context(), Request{
			Principal: principal,
			Action:    rule.Action,
			Resource:  resource,
		})
		if err != nil {
			// Only caller cancellation reaches here; the client absorbs
			// everything else via fallback.
			return
		}

		m.auditDecision(r, rule, principal, resourceID, decision)

		if !decision.Allowed {
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) auditDecision(r *http.Request, rule RouteRule, principal Principal, resourceID string, d Decision) {
	if m.audit == nil {
		return
	}
	m.audit.LogDecision(&AuditEvent{
		RequestID:      RequestIDFromContext(r.Context()),
		PrincipalID:    principal.ID,
		PrincipalRoles: principal.Roles,
		ResourceType:   string(rule.Resource),
		ResourceID:     resourceID,
		Action:         rule.Action,
		Decision:       d.Allowed,
		Reason:         d.Reason,
		Source:         string(d.Source),
		Duration:       d.Latency,
		IPAddress:      r.RemoteAddr,
		Method:         r.Method,
		Path:           r.URL.Path,
	})
}
