// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventprovenance/gatekeeper/internal/authz"
	"github.com/eventprovenance/gatekeeper/internal/middleware"
)

// RouterConfig holds the HTTP-level settings the router needs.
type RouterConfig struct {
	JWTSecret       string
	RateLimitReqs   int
	RateLimitWindow time.Duration
	CORSOrigins     []string
}

// Router assembles the HTTP handler tree.
type Router struct {
	config   RouterConfig
	handlers *Handlers
	authz    *authz.Middleware
	client   *authz.PolicyClient
}

// NewRouter creates a router over the given handlers and
// authorization middleware.
func NewRouter(cfg RouterConfig, handlers *Handlers, az *authz.Middleware, client *authz.PolicyClient) *Router {
	return &Router{
		config:   cfg,
		handlers: handlers,
		authz:    az,
		client:   client,
	}
}

// Routes declares the authorization requirements of every protected
// route. The middleware denies anything not listed here.
func Routes() authz.RouteTable {
	t := authz.RouteTable{}

	t.Add(http.MethodPost, "/api/v1/receivers", authz.RouteRule{
		Resource: authz.ResourceEventReceiver, Action: "event_receiver:create",
	})
	t.Add(http.MethodGet, "/api/v1/receivers/{receiverID}", authz.RouteRule{
		Resource: authz.ResourceEventReceiver, Action: "event_receiver:read", IDParam: "receiverID",
	})
	t.Add(http.MethodPut, "/api/v1/receivers/{receiverID}", authz.RouteRule{
		Resource: authz.ResourceEventReceiver, Action: "event_receiver:update", IDParam: "receiverID",
	})
	t.Add(http.MethodDelete, "/api/v1/receivers/{receiverID}", authz.RouteRule{
		Resource: authz.ResourceEventReceiver, Action: "event_receiver:delete", IDParam: "receiverID",
	})

	t.Add(http.MethodPost, "/api/v1/groups", authz.RouteRule{
		Resource: authz.ResourceEventReceiverGroup, Action: "event_receiver_group:create",
	})
	t.Add(http.MethodGet, "/api/v1/groups/{groupID}", authz.RouteRule{
		Resource: authz.ResourceEventReceiverGroup, Action: "event_receiver_group:read", IDParam: "groupID",
	})
	t.Add(http.MethodPut, "/api/v1/groups/{groupID}", authz.RouteRule{
		Resource: authz.ResourceEventReceiverGroup, Action: "event_receiver_group:update", IDParam: "groupID",
	})
	t.Add(http.MethodDelete, "/api/v1/groups/{groupID}", authz.RouteRule{
		Resource: authz.ResourceEventReceiverGroup, Action: "event_receiver_group:delete", IDParam: "groupID",
	})

	t.Add(http.MethodPost, "/api/v1/events", authz.RouteRule{
		Resource: authz.ResourceEvent, Action: "event:create",
	})
	t.Add(http.MethodGet, "/api/v1/events/{eventID}", authz.RouteRule{
		Resource: authz.ResourceEvent, Action: "event:read", IDParam: "eventID",
	})

	return t
}

// Setup builds the complete handler tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Unauthenticated operational endpoints.
	r.Get("/healthz", rt.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if rt.config.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(rt.config.RateLimitReqs, rt.config.RateLimitWindow))
		}
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.Authenticate(rt.config.JWTSecret))

		guard := rt.authz.Handler

		r.With(guard).Post("/receivers", rt.handlers.CreateReceiver)
		r.With(guard).Get("/receivers/{receiverID}", rt.handlers.GetReceiver)
		r.With(guard).Put("/receivers/{receiverID}", rt.handlers.UpdateReceiver)
		r.With(guard).Delete("/receivers/{receiverID}", rt.handlers.DeleteReceiver)

		r.With(guard).Post("/groups", rt.handlers.CreateGroup)
		r.With(guard).Get("/groups/{groupID}", rt.handlers.GetGroup)
		r.With(guard).Put("/groups/{groupID}", rt.handlers.UpdateGroup)
		r.With(guard).Delete("/groups/{groupID}", rt.handlers.DeleteGroup)

		r.With(guard).Post("/events", rt.handlers.CreateEvent)
		r.With(guard).Get("/events/{eventID}", rt.handlers.GetEvent)
	})

	return r
}

// healthz reports process health together with the state of the
// authorization path.
func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"breaker_state": rt.client.BreakerState(),
		"cache_entries": rt.client.CacheSize(),
	})
}
