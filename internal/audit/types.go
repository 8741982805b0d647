// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeAuthSuccess     EventType = "auth.success"
	EventTypeAuthFailure     EventType = "auth.failure"
	EventTypeAuthLockout     EventType = "auth.lockout"
	EventTypeAuthzDenied     EventType = "authz.denied"
	EventTypeUserCreated     EventType = "user.created"
	EventTypeDeadLettersRead EventType = "data.dead_letters_read"
	EventTypeAuditRead       EventType = "data.audit_read"
	EventTypeBackupCreated   EventType = "backup.created"
)

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one recorded admin action.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Outcome   Outcome   `json:"outcome"`

	// Actor is the admin username, or the attempted one for failed logins.
	Actor    string  `json:"actor"`
	SourceIP string  `json:"source_ip,omitempty"`
	Target   *Target `json:"target,omitempty"`

	Action      string          `json:"action"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`

	RequestID     string `json:"request_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Target identifies what an action touched.
type Target struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	// Query returns matching events, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)
	// Delete removes events older than the cutoff and reports how many.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter narrows audit queries. Zero fields match everything.
type QueryFilter struct {
	Types     []EventType
	Outcomes  []Outcome
	Actor     string
	SourceIP  string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
}

const (
	// DefaultQueryLimit applies when a filter has no limit.
	DefaultQueryLimit = 100
	// MaxQueryLimit caps a single page.
	MaxQueryLimit = 1000
)

// DefaultQueryFilter returns the newest DefaultQueryLimit events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: DefaultQueryLimit}
}
