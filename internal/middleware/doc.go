// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

// Package middleware provides HTTP middleware for request tracing and
// Prometheus instrumentation. Authorization enforcement lives in
// internal/authz.
package middleware
