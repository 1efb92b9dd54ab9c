// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

// Package main is the entry point for the Gatekeeper server.
//
// Gatekeeper is the policy-based authorization core for an event
// provenance system: it stores event receivers, receiver groups, and
// events, and gates every API operation through a policy engine with
// a version-keyed decision cache, circuit breaker, and conservative
// local fallback.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered sources (env > file > defaults)
//  2. Logging: process-wide zerolog logger
//  3. Policy evaluator: remote HTTP engine or embedded Casbin
//  4. Event bus (optional): NATS JetStream for cross-node cache invalidation
//  5. Storage: in-memory or BadgerDB repositories
//  6. HTTP server: Chi router behind the authorization middleware
//  7. Supervision: suture tree running the server and bus consumers
//
// # Configuration
//
// Minimal production setup:
//
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export POLICY_ENGINE_MODE=remote
//	export POLICY_ENGINE_URL=http://policy-engine:8181/v1/authorize
//	export STORAGE_BACKEND=badger
//	export STORAGE_PATH=/data/gatekeeper
//	export BUS_ENABLED=true
//	export BUS_URL=nats://nats:4222
//	./gatekeeper
//
// Single-node development setup runs with the embedded engine, memory
// storage, and no bus:
//
//	export JWT_SECRET=dev-secret-at-least-32-characters!
//	./gatekeeper
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the server stops
// accepting connections, drains in-flight requests, flushes the audit
// buffer, and closes storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/eventprovenance/gatekeeper/internal/api"
	"github.com/eventprovenance/gatekeeper/internal/authz"
	"github.com/eventprovenance/gatekeeper/internal/config"
	"github.com/eventprovenance/gatekeeper/internal/eventbus"
	"github.com/eventprovenance/gatekeeper/internal/logging"
	"github.com/eventprovenance/gatekeeper/internal/storage"
	"github.com/eventprovenance/gatekeeper/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("policy_mode", cfg.PolicyEngine.Mode).
		Str("storage", cfg.Storage.Backend).
		Bool("bus", cfg.Bus.Enabled).
		Msg("Starting gatekeeper")

	evaluator, err := buildEvaluator(cfg)
	if err != nil {
		return fmt.Errorf("build policy evaluator: %w", err)
	}

	client := authz.NewPolicyClient(evaluator, authz.ClientConfig{
		CacheTTL: cfg.PolicyEngine.CacheTTL,
		Breaker: authz.BreakerConfig{
			Name:             "policy-engine",
			FailureThreshold: cfg.PolicyEngine.BreakerFailureThreshold,
			OpenTimeout:      cfg.PolicyEngine.BreakerOpenTimeout,
			HalfOpenMaxCalls: cfg.PolicyEngine.BreakerHalfOpenCalls,
		},
	})
	defer client.Close()

	invalidator := &cacheInvalidator{client: client}
	emitters := storage.MultiEmitter{invalidator}

	var busPublisher *eventbus.Publisher
	if cfg.Bus.Enabled {
		busPublisher, err = eventbus.NewNATSPublisher(natsConfig(cfg), nil)
		if err != nil {
			return fmt.Errorf("connect event bus publisher: %w", err)
		}
		defer busPublisher.Close()
		emitters = append(emitters, busPublisher)
	}

	store, err := buildStore(cfg, emitters)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	audit := authz.NewAuditLogger(&authz.AuditLoggerConfig{
		Enabled:    cfg.Audit.Enabled,
		LogAllowed: cfg.Audit.LogAllowed,
		LogDenied:  cfg.Audit.LogDenied,
		BufferSize: cfg.Audit.BufferSize,
	})
	defer audit.Close()

	builder := authz.NewContextBuilder(store)
	guard := authz.NewMiddleware(client, builder, audit, api.Routes())

	router := api.NewRouter(api.RouterConfig{
		JWTSecret:       cfg.Server.JWTSecret,
		RateLimitReqs:   cfg.Server.RateLimitReqs,
		RateLimitWindow: cfg.Server.RateLimitWindow,
		CORSOrigins:     cfg.Server.CORSOrigins,
	}, api.NewHandlers(store), guard, client)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if cfg.Bus.Enabled {
		subscriber, err := eventbus.NewNATSSubscriber(natsConfig(cfg), nil)
		if err != nil {
			return fmt.Errorf("connect event bus subscriber: %w", err)
		}
		defer subscriber.Close()
		tree.AddBusService(eventbus.NewInvalidator(subscriber, invalidator))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Gatekeeper listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logging.Info().Msg("Gatekeeper stopped")
	return nil
}

// buildEvaluator constructs the configured policy evaluator.
func buildEvaluator(cfg *config.Config) (authz.Evaluator, error) {
	switch cfg.PolicyEngine.Mode {
	case "remote":
		return authz.NewRemoteEngine(authz.RemoteEngineConfig{
			URL:     cfg.PolicyEngine.URL,
			Timeout: cfg.PolicyEngine.Timeout,
		})
	case "embedded":
		return authz.NewLocalEngine(authz.LocalEngineConfig{
			ModelPath:  cfg.PolicyEngine.ModelPath,
			PolicyPath: cfg.PolicyEngine.PolicyPath,
		})
	default:
		return nil, fmt.Errorf("unknown policy engine mode %q", cfg.PolicyEngine.Mode)
	}
}

// buildStore opens the configured repository backend.
func buildStore(cfg *config.Config, emitter storage.UpdateEmitter) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "badger":
		return storage.OpenBadgerStore(cfg.Storage.Path, emitter)
	case "memory":
		return storage.NewMemoryStore(emitter), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func natsConfig(cfg *config.Config) eventbus.NATSConfig {
	return eventbus.NATSConfig{
		URL:           cfg.Bus.URL,
		MaxReconnects: cfg.Bus.MaxReconnects,
		ReconnectWait: cfg.Bus.ReconnectWait,
		CloseTimeout:  cfg.Bus.CloseTimeout,
	}
}

// cacheInvalidator adapts the policy client to both invalidation
// paths: the synchronous local one (storage update emitter) and the
// bus consumer.
type cacheInvalidator struct {
	client *authz.PolicyClient
}

func (c *cacheInvalidator) ResourceUpdated(_ context.Context, resourceType, resourceID string, _ int64) error {
	c.client.InvalidateResource(authz.ResourceType(resourceType), resourceID)
	return nil
}

func (c *cacheInvalidator) InvalidateResource(resourceType, resourceID string) {
	c.client.InvalidateResource(authz.ResourceType(resourceType), resourceID)
}
