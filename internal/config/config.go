// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

// Package config loads and validates server configuration from
// defaults, an optional YAML file, and environment variables, in
// ascending precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the complete server configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	PolicyEngine PolicyEngineConfig `koanf:"policy_engine"`
	Audit        AuditConfig        `koanf:"audit"`
	Bus          BusConfig          `koanf:"bus"`
	Storage      StorageConfig      `koanf:"storage"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	JWTSecret       string        `koanf:"jwt_secret"`
}

// PolicyEngineConfig selects and tunes the policy evaluator.
type PolicyEngineConfig struct {
	// Mode is "remote" (external engine over HTTP) or "embedded"
	// (in-process Casbin).
	Mode string `koanf:"mode"`

	// URL is the remote engine endpoint. Required in remote mode.
	URL string `koanf:"url"`

	// Timeout bounds one remote evaluation call.
	Timeout time.Duration `koanf:"timeout"`

	// ModelPath and PolicyPath override the embedded Casbin model and
	// policy files. Empty means use the built-in ones.
	ModelPath  string `koanf:"model_path"`
	PolicyPath string `koanf:"policy_path"`

	// CacheTTL bounds how long decisions stay cached.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// Breaker settings for the circuit guarding the evaluator.
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerOpenTimeout      time.Duration `koanf:"breaker_open_timeout"`
	BreakerHalfOpenCalls    uint32        `koanf:"breaker_half_open_calls"`
}

// AuditConfig tunes decision audit logging.
type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	LogAllowed bool `koanf:"log_allowed"`
	LogDenied  bool `koanf:"log_denied"`
	BufferSize int  `koanf:"buffer_size"`
}

// BusConfig holds event bus settings for cross-node cache
// invalidation.
type BusConfig struct {
	// Enabled turns the NATS transport on. Disabled means
	// single-node: only local invalidation runs.
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
	CloseTimeout  time.Duration `koanf:"close_timeout"`
}

// StorageConfig selects the resource repository backend.
type StorageConfig struct {
	// Backend is "memory" or "badger".
	Backend string `koanf:"backend"`

	// Path is the badger data directory. Empty opens an in-memory
	// database.
	Path string `koanf:"path"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8472,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"*"},
		},
		PolicyEngine: PolicyEngineConfig{
			Mode:                    "embedded",
			URL:                     "",
			Timeout:                 5 * time.Second,
			CacheTTL:                5 * time.Minute,
			BreakerFailureThreshold: 5,
			BreakerOpenTimeout:      30 * time.Second,
			BreakerHalfOpenCalls:    1,
		},
		Audit: AuditConfig{
			Enabled:    true,
			LogAllowed: true,
			LogDenied:  true,
			BufferSize: 1000,
		},
		Bus: BusConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			CloseTimeout:  30 * time.Second,
		},
		Storage: StorageConfig{
			Backend: "memory",
			Path:    "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePolicyEngine(); err != nil {
		return err
	}
	if err := c.validateBus(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Server.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

func (c *Config) validatePolicyEngine() error {
	switch c.PolicyEngine.Mode {
	case "remote":
		if c.PolicyEngine.URL == "" {
			return fmt.Errorf("POLICY_ENGINE_URL is required when POLICY_ENGINE_MODE=remote")
		}
	case "embedded":
	default:
		return fmt.Errorf("POLICY_ENGINE_MODE must be 'remote' or 'embedded', got %q", c.PolicyEngine.Mode)
	}
	if c.PolicyEngine.Timeout <= 0 {
		return fmt.Errorf("POLICY_ENGINE_TIMEOUT must be positive")
	}
	if c.PolicyEngine.CacheTTL <= 0 {
		return fmt.Errorf("POLICY_CACHE_TTL must be positive")
	}
	if c.PolicyEngine.BreakerFailureThreshold == 0 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}
	return nil
}

func (c *Config) validateBus() error {
	if !c.Bus.Enabled {
		return nil
	}
	if c.Bus.URL == "" {
		return fmt.Errorf("BUS_URL is required when BUS_ENABLED=true")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "memory", "badger":
		return nil
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 'memory' or 'badger', got %q", c.Storage.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", c.Logging.Format)
	}
}
