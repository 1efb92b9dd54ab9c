// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// LocalEngineConfig holds configuration for the embedded evaluator.
type LocalEngineConfig struct {
	// ModelPath overrides the embedded Casbin model when set and present.
	ModelPath string

	// PolicyPath overrides the embedded policy when set and present.
	PolicyPath string
}

// LocalEngine is an embedded Casbin-backed policy engine. It serves
// single-node deployments where running a separate policy-engine
// service is not worth the operational cost, and acts as the hermetic
// engine in tests. It implements the same Evaluator contract as
// RemoteEngine, so the policy client composes it identically.
//
// Evaluation order: explicit permission string, resource ownership,
// role-based policy, group membership (read-only).
type LocalEngine struct {
	enforcer *casbin.SyncedEnforcer
}

// NewLocalEngine creates the embedded evaluator.
func NewLocalEngine(cfg LocalEngineConfig) (*LocalEngine, error) {
	var m model.Model
	var err error

	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		adapter := fileadapter.NewAdapter(cfg.PolicyPath)
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	return &LocalEngine{enforcer: enforcer}, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch parts[0] {
		case "p":
			if len(parts) >= 4 {
				if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
					return fmt.Errorf("add policy %v: %w", parts[1:], err)
				}
			}
		case "g":
			if len(parts) >= 3 {
				if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
					return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
				}
			}
		}
	}
	return nil
}

// Name implements Evaluator.
func (e *LocalEngine) Name() string {
	return "local"
}

// Evaluate implements Evaluator.
func (e *LocalEngine) Evaluate(_ context.Context, req Request) (EngineDecision, error) {
	// Explicit permission strings short-circuit the policy.
	if req.Principal.HasPermission(req.Action) {
		return EngineDecision{Allow: true, Reason: "explicit permission"}, nil
	}

	// Owners may act on their own resources.
	if req.Resource.OwnerID != "" && req.Resource.OwnerID == req.Principal.ID {
		return EngineDecision{Allow: true, Reason: "resource owner"}, nil
	}

	obj := string(req.Resource.Type)

	// Role-based policy, including role hierarchy via grouping rules.
	for _, role := range req.Principal.Roles {
		allowed, err := e.enforcer.Enforce(role, obj, req.Action)
		if err != nil {
			return EngineDecision{}, &EngineError{Kind: EngineErrMalformed, Err: err}
		}
		if allowed {
			return EngineDecision{Allow: true}, nil
		}
	}

	// Members of the resource's group (or the group itself) get read
	// access; writes still require a role or ownership.
	if isReadAction(req.Action) {
		if req.Resource.IsMember(req.Principal.ID) {
			return EngineDecision{Allow: true, Reason: "group member"}, nil
		}
		if req.Resource.GroupID != "" && req.Principal.InGroup(req.Resource.GroupID) {
			return EngineDecision{Allow: true, Reason: "group member"}, nil
		}
	}

	return EngineDecision{Allow: false, Reason: "no matching policy"}, nil
}

// isReadAction reports whether the action is read-only by convention
// ("<resource>:read", "<resource>:list").
func isReadAction(action string) bool {
	return strings.HasSuffix(action, ":read") || strings.HasSuffix(action, ":list")
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
