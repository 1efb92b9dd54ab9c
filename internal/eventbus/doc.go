// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

// Package eventbus carries resource-updated notifications between
// nodes so every replica's decision cache is invalidated when a
// resource changes.
//
// Transport is Watermill over NATS JetStream in production; tests use
// Watermill's in-process gochannel pub/sub through the same Publisher
// and Invalidator types. Delivery is at-least-once: invalidation is
// idempotent, so duplicates are harmless.
package eventbus
