// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-with-at-least-32-chars!!"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8472 {
		t.Errorf("Port = %d, want 8472", cfg.Server.Port)
	}
	if cfg.PolicyEngine.Mode != "embedded" {
		t.Errorf("Mode = %q, want embedded", cfg.PolicyEngine.Mode)
	}
	if cfg.PolicyEngine.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.PolicyEngine.CacheTTL)
	}
	if cfg.PolicyEngine.BreakerFailureThreshold != 5 {
		t.Errorf("BreakerFailureThreshold = %d, want 5", cfg.PolicyEngine.BreakerFailureThreshold)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Bus.Enabled {
		t.Error("bus enabled by default")
	}
	if !cfg.Audit.Enabled || !cfg.Audit.LogDenied {
		t.Errorf("audit defaults = %+v", cfg.Audit)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_TIMEOUT", "45s")
	t.Setenv("POLICY_ENGINE_MODE", "remote")
	t.Setenv("POLICY_ENGINE_URL", "http://engine:8181/v1/authorize")
	t.Setenv("POLICY_CACHE_TTL", "90s")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "7")
	t.Setenv("STORAGE_BACKEND", "badger")
	t.Setenv("STORAGE_PATH", "/tmp/gatekeeper-test")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Server.Timeout)
	}
	if cfg.PolicyEngine.Mode != "remote" || cfg.PolicyEngine.URL != "http://engine:8181/v1/authorize" {
		t.Errorf("policy engine = %+v", cfg.PolicyEngine)
	}
	if cfg.PolicyEngine.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL = %v, want 90s", cfg.PolicyEngine.CacheTTL)
	}
	if cfg.PolicyEngine.BreakerFailureThreshold != 7 {
		t.Errorf("BreakerFailureThreshold = %d, want 7", cfg.PolicyEngine.BreakerFailureThreshold)
	}
	if cfg.Storage.Backend != "badger" || cfg.Storage.Path != "/tmp/gatekeeper-test" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 7000
policy_engine:
  mode: embedded
  cache_ttl: 2m
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", testSecret)
	// Env still beats the file.
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000 from file", cfg.Server.Port)
	}
	if cfg.PolicyEngine.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v, want 2m from file", cfg.PolicyEngine.CacheTTL)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Level = %q, want error (env beats file)", cfg.Logging.Level)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without JWT_SECRET")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := defaultConfig()
		c.Server.JWTSecret = testSecret
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"timeout zero", func(c *Config) { c.Server.Timeout = 0 }, "HTTP_TIMEOUT"},
		{"jwt secret missing", func(c *Config) { c.Server.JWTSecret = "" }, "JWT_SECRET"},
		{"jwt secret short", func(c *Config) { c.Server.JWTSecret = "short" }, "JWT_SECRET"},
		{"remote mode without url", func(c *Config) { c.PolicyEngine.Mode = "remote" }, "POLICY_ENGINE_URL"},
		{"unknown mode", func(c *Config) { c.PolicyEngine.Mode = "hybrid" }, "POLICY_ENGINE_MODE"},
		{"cache ttl zero", func(c *Config) { c.PolicyEngine.CacheTTL = 0 }, "POLICY_CACHE_TTL"},
		{"breaker threshold zero", func(c *Config) { c.PolicyEngine.BreakerFailureThreshold = 0 }, "BREAKER_FAILURE_THRESHOLD"},
		{"bus enabled without url", func(c *Config) { c.Bus.Enabled = true; c.Bus.URL = "" }, "BUS_URL"},
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "postgres" }, "STORAGE_BACKEND"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{
			name: "remote mode with url valid",
			mutate: func(c *Config) {
				c.PolicyEngine.Mode = "remote"
				c.PolicyEngine.URL = "http://engine:8181"
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"JWT_SECRET", "server.jwt_secret"},
		{"HTTP_PORT", "server.port"},
		{"POLICY_ENGINE_MODE", "policy_engine.mode"},
		{"BREAKER_OPEN_TIMEOUT", "policy_engine.breaker_open_timeout"},
		{"BUS_URL", "bus.url"},
		{"STORAGE_BACKEND", "storage.backend"},
		{"LOG_LEVEL", "logging.level"},
		// Unmapped variables are dropped, not passed through.
		{"PATH", ""},
		{"HOME", ""},
		{"RANDOM_THING", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
