// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package authz

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventprovenance/gatekeeper/internal/logging"
	"github.com/eventprovenance/gatekeeper/internal/metrics"
)

// AuditEvent captures the complete context of one authorization
// decision for security monitoring and forensic analysis.
type AuditEvent struct {
	// ID is a unique identifier for this audit event
	ID string `json:"id"`

	// Timestamp is when the authorization decision was made
	Timestamp time.Time `json:"timestamp"`

	// RequestID links this event to an HTTP request (if applicable)
	RequestID string `json:"request_id,omitempty"`

	// PrincipalID is the subject requesting access
	PrincipalID string `json:"principal_id"`

	// PrincipalRoles is the list of roles the principal carries
	PrincipalRoles []string `json:"principal_roles,omitempty"`

	// ResourceType is the kind of resource being accessed
	ResourceType string `json:"resource_type"`

	// ResourceID identifies the concrete resource instance
	ResourceID string `json:"resource_id,omitempty"`

	// Action is the operation being performed (e.g. "event_receiver:read")
	Action string `json:"action"`

	// Decision is true if access was allowed, false if denied
	Decision bool `json:"decision"`

	// Reason provides context for the decision (especially for denials)
	Reason string `json:"reason,omitempty"`

	// Source records where the decision came from: policy engine,
	// cache, or fallback
	Source string `json:"source"`

	// Duration is how long the authorization check took
	Duration time.Duration `json:"duration_ns"`

	// IPAddress is the client's IP address
	IPAddress string `json:"ip_address,omitempty"`

	// Method is the HTTP method (if applicable)
	Method string `json:"method,omitempty"`

	// Path is the request path (if applicable)
	Path string `json:"path,omitempty"`
}

// AuditLoggerConfig configures the audit logger behavior.
type AuditLoggerConfig struct {
	// Enabled controls whether audit logging is active
	Enabled bool

	// LogAllowed controls whether to log allowed decisions.
	// Set to false to only log denials (reduces log volume).
	LogAllowed bool

	// LogDenied controls whether to log denied decisions
	LogDenied bool

	// BufferSize is the size of the async log buffer.
	// Events are dropped if the buffer is full (non-blocking).
	BufferSize int
}

// DefaultAuditLoggerConfig returns sensible defaults for production.
func DefaultAuditLoggerConfig() *AuditLoggerConfig {
	return &AuditLoggerConfig{
		Enabled:    true,
		LogAllowed: true,
		LogDenied:  true,
		BufferSize: 1000,
	}
}

// AuditLogger handles async logging of authorization decisions.
// Recording never blocks the request path; under backpressure events
// are dropped and the drop is counted.
type AuditLogger struct {
	config   *AuditLoggerConfig
	events   chan *AuditEvent
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAuditLogger creates a new audit logger with the given configuration.
func NewAuditLogger(config *AuditLoggerConfig) *AuditLogger {
	if config == nil {
		config = DefaultAuditLoggerConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}

	al := &AuditLogger{
		config:   config,
		events:   make(chan *AuditEvent, config.BufferSize),
		stopChan: make(chan struct{}),
	}

	if config.Enabled {
		al.wg.Add(1)
		go al.processEvents()
	}

	return al
}

// LogDecision records an authorization decision asynchronously.
// This method is non-blocking; events are dropped if the buffer is full.
func (al *AuditLogger) LogDecision(event *AuditEvent) {
	if al == nil || !al.config.Enabled {
		return
	}

	if event.Decision && !al.config.LogAllowed {
		return
	}
	if !event.Decision && !al.config.LogDenied {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case al.events <- event:
		metrics.RecordAuditEvent(event.Decision)
	default:
		metrics.RecordAuditDropped()
		logging.Warn().
			Str("principal_id", event.PrincipalID).
			Str("resource_type", event.ResourceType).
			Str("action", event.Action).
			Msg("Audit log buffer full, event dropped")
	}
}

// processEvents handles the async event processing.
func (al *AuditLogger) processEvents() {
	defer al.wg.Done()

	for {
		select {
		case <-al.stopChan:
			al.drainEvents()
			return
		case event := <-al.events:
			al.writeEvent(event)
		}
	}
}

// drainEvents processes any remaining events in the buffer.
func (al *AuditLogger) drainEvents() {
	for {
		select {
		case event := <-al.events:
			al.writeEvent(event)
		default:
			return
		}
	}
}

// writeEvent outputs the event to the log. Denials are logged at
// warning level for visibility.
func (al *AuditLogger) writeEvent(event *AuditEvent) {
	logEvent := logging.Info()
	if !event.Decision {
		logEvent = logging.Warn()
	}

	logEvent = logEvent.
		Str("event_type", "authz_decision").
		Str("audit_id", event.ID).
		Time("audit_timestamp", event.Timestamp).
		Str("principal_id", event.PrincipalID).
		Str("resource_type", event.ResourceType).
		Str("action", event.Action).
		Bool("decision", event.Decision).
		Str("source", event.Source).
		Dur("duration", event.Duration)

	if event.ResourceID != "" {
		logEvent = logEvent.Str("resource_id", event.ResourceID)
	}
	if len(event.PrincipalRoles) > 0 {
		logEvent = logEvent.Strs("principal_roles", event.PrincipalRoles)
	}
	if event.RequestID != "" {
		logEvent = logEvent.Str("request_id", event.RequestID)
	}
	if event.Reason != "" {
		logEvent = logEvent.Str("reason", event.Reason)
	}
	if event.IPAddress != "" {
		logEvent = logEvent.Str("ip_address", event.IPAddress)
	}
	if event.Method != "" {
		logEvent = logEvent.Str("method", event.Method)
	}
	if event.Path != "" {
		logEvent = logEvent.Str("path", event.Path)
	}

	if event.Decision {
		logEvent.Msg("Authorization allowed")
	} else {
		logEvent.Msg("Authorization denied")
	}
}

// Close stops the audit logger and flushes remaining events.
func (al *AuditLogger) Close() {
	if al == nil {
		return
	}

	al.stopOnce.Do(func() {
		close(al.stopChan)
	})
	al.wg.Wait()
}

// Stats returns current audit logger statistics.
func (al *AuditLogger) Stats() AuditLoggerStats {
	if al == nil {
		return AuditLoggerStats{}
	}

	return AuditLoggerStats{
		BufferSize: al.config.BufferSize,
		BufferUsed: len(al.events),
		Enabled:    al.config.Enabled,
		LogAllowed: al.config.LogAllowed,
		LogDenied:  al.config.LogDenied,
	}
}

// AuditLoggerStats provides statistics about the audit logger.
type AuditLoggerStats struct {
	BufferSize int  `json:"buffer_size"`
	BufferUsed int  `json:"buffer_used"`
	Enabled    bool `json:"enabled"`
	LogAllowed bool `json:"log_allowed"`
	LogDenied  bool `json:"log_denied"`
}
