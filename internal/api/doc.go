// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

// Package api provides the HTTP surface: Chi routing, the request
// handlers for event receivers, groups, and events, and the route
// table the authorization middleware enforces.
package api
