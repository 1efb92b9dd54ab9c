// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	principalKey contextKey = "authz_principal"
	requestIDKey contextKey = "request_id"
)

// WithPrincipal attaches an authenticated principal to the context.
// The authentication layer calls this once per request, before the
// authorization middleware runs.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal. The
// second return is false when no authentication ran for this request.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithRequestID adds a request ID to the context for audit correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// PrincipalFromClaims builds a Principal from verified JWT claims.
//
// Claim layout: "sub" for the principal ID, "roles", "permissions",
// and "groups" as string arrays. Malformed entries are skipped rather
// than failing the whole principal; the token has already passed
// signature verification by the time it reaches authorization.
func PrincipalFromClaims(claims jwt.MapClaims) Principal {
	p := Principal{}
	if sub, err := claims.GetSubject(); err == nil {
		p.ID = sub
	}
	p.Roles = stringSliceClaim(claims, "roles")
	p.Permissions = stringSliceClaim(claims, "permissions")
	p.Groups = stringSliceClaim(claims, "groups")
	return p
}

func stringSliceClaim(claims jwt.MapClaims, name string) []string {
	raw, ok := claims[name]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		// A single string claim is accepted as a one-element list.
		if s, ok := raw.(string); ok && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
