// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tweetqueue/internal/config"
	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
)

// Config holds configuration for the audit logger.
type Config struct {
	// MaxEvents bounds the default MemoryStore.
	MaxEvents int

	// Retention is how long events are kept.
	Retention time.Duration

	// CleanupInterval is how often retention is enforced.
	CleanupInterval time.Duration

	// BufferSize is the size of the async write buffer.
	BufferSize int

	// LogToStdout also writes events through the application logger.
	LogToStdout bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxEvents:       defaultMaxEvents,
		Retention:       30 * 24 * time.Hour,
		CleanupInterval: time.Hour,
		BufferSize:      1000,
		LogToStdout:     true,
	}
}

// FromAppConfig maps the application config onto logger settings.
func FromAppConfig(cfg *config.AuditConfig) Config {
	c := DefaultConfig()
	if cfg.MaxEvents > 0 {
		c.MaxEvents = cfg.MaxEvents
	}
	if cfg.Retention > 0 {
		c.Retention = cfg.Retention
	}
	return c
}

// Logger records admin actions without blocking the request path. A nil
// *Logger is valid and records nothing.
type Logger struct {
	config    Config
	store     Store
	eventChan chan *Event
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	now       func() time.Time
}

// NewLogger creates a logger writing to store. A nil store gets a
// MemoryStore sized by cfg.MaxEvents.
func NewLogger(store Store, cfg Config) *Logger {
	if store == nil {
		store = NewMemoryStore(cfg.MaxEvents)
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	l := &Logger{
		config:    cfg,
		store:     store,
		eventChan: make(chan *Event, cfg.BufferSize),
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain remaining events
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.config.LogToStdout {
		logging.Info().
			Str("audit_id", event.ID).
			Str("type", string(event.Type)).
			Str("outcome", string(event.Outcome)).
			Str("actor", event.Actor).
			Str("source_ip", event.SourceIP).
			Str("request_id", event.RequestID).
			Msg(event.Description)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		metrics.RecordAuditEvent(string(event.Type), "error")
		logging.Error().Err(err).Str("audit_id", event.ID).Msg("Failed to save audit event")
		return
	}
	metrics.RecordAuditEvent(string(event.Type), "stored")
}

// Log records an event. ID and Timestamp are filled in when empty. Events
// are dropped when the buffer is full or the logger is closed.
func (l *Logger) Log(event *Event) {
	if l == nil || event == nil {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}

	select {
	case <-l.stopChan:
		metrics.RecordAuditEvent(string(event.Type), "dropped")
		return
	default:
	}

	select {
	case l.eventChan <- event:
	default:
		metrics.RecordAuditEvent(string(event.Type), "dropped")
		logging.Warn().Str("audit_id", event.ID).Msg("Audit event buffer full, dropping event")
	}
}

// Close flushes buffered events and stops the writer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.closeOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// RunCleanup prunes events older than the retention period every
// CleanupInterval until ctx is cancelled.
func (l *Logger) RunCleanup(ctx context.Context) error {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Prune(ctx)
		}
	}
}

// Prune deletes events older than the retention period.
func (l *Logger) Prune(ctx context.Context) int64 {
	cutoff := l.now().Add(-l.config.Retention)
	count, err := l.store.Delete(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit cleanup error")
		return 0
	}
	if count > 0 {
		logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
	}
	return count
}

// Query returns events matching filter, newest first.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// LogAuthSuccess records a successful admin login.
func (l *Logger) LogAuthSuccess(ctx context.Context, username, sourceIP string) {
	l.Log(newEvent(ctx, EventTypeAuthSuccess, SeverityInfo, OutcomeSuccess, username, sourceIP,
		"login", fmt.Sprintf("Admin %q logged in", username)))
}

// LogAuthFailure records a rejected login.
func (l *Logger) LogAuthFailure(ctx context.Context, username, sourceIP, reason string) {
	event := newEvent(ctx, EventTypeAuthFailure, SeverityWarning, OutcomeFailure, username, sourceIP,
		"login", fmt.Sprintf("Login failed for %q: %s", username, reason))
	event.Metadata = mustJSON(map[string]string{"reason": reason})
	l.Log(event)
}

// LogAuthLockout records a login refused because the subject is locked out.
func (l *Logger) LogAuthLockout(ctx context.Context, username, sourceIP string, retryAfter time.Duration) {
	event := newEvent(ctx, EventTypeAuthLockout, SeverityCritical, OutcomeFailure, username, sourceIP,
		"login", fmt.Sprintf("Login for %q refused during lockout", username))
	event.Metadata = mustJSON(map[string]interface{}{"retry_after_seconds": int(retryAfter.Seconds())})
	l.Log(event)
}

// LogAuthzDenied records a token whose role lacked a permission.
func (l *Logger) LogAuthzDenied(ctx context.Context, actor, sourceIP, object, action string) {
	event := newEvent(ctx, EventTypeAuthzDenied, SeverityWarning, OutcomeFailure, actor, sourceIP,
		action, fmt.Sprintf("Denied %s on %s", action, object))
	event.Target = &Target{Type: "route", ID: object}
	l.Log(event)
}

// LogUserCreated records an admin seeding a user.
func (l *Logger) LogUserCreated(ctx context.Context, actor, sourceIP, userID, username string) {
	event := newEvent(ctx, EventTypeUserCreated, SeverityInfo, OutcomeSuccess, actor, sourceIP,
		"create_user", fmt.Sprintf("User %q created", username))
	event.Target = &Target{Type: "user", ID: userID, Name: username}
	l.Log(event)
}

// LogDeadLettersRead records an admin listing dead-letter records.
func (l *Logger) LogDeadLettersRead(ctx context.Context, actor, sourceIP string, count int) {
	event := newEvent(ctx, EventTypeDeadLettersRead, SeverityInfo, OutcomeSuccess, actor, sourceIP,
		"list_dead_letters", fmt.Sprintf("Listed %d dead-letter records", count))
	event.Metadata = mustJSON(map[string]int{"count": count})
	l.Log(event)
}

// LogAuditRead records an admin reading the audit trail.
func (l *Logger) LogAuditRead(ctx context.Context, actor, sourceIP string, count int) {
	event := newEvent(ctx, EventTypeAuditRead, SeverityInfo, OutcomeSuccess, actor, sourceIP,
		"list_audit_events", fmt.Sprintf("Listed %d audit events", count))
	l.Log(event)
}

// LogBackupCreated records an admin triggering a backup. A non-nil err
// records a failed attempt.
func (l *Logger) LogBackupCreated(ctx context.Context, actor, sourceIP, backupID, fileName string, err error) {
	if err != nil {
		event := newEvent(ctx, EventTypeBackupCreated, SeverityWarning, OutcomeFailure, actor, sourceIP,
			"create_backup", "Backup failed: "+err.Error())
		if backupID != "" {
			event.Target = &Target{Type: "backup", ID: backupID}
		}
		l.Log(event)
		return
	}
	event := newEvent(ctx, EventTypeBackupCreated, SeverityInfo, OutcomeSuccess, actor, sourceIP,
		"create_backup", fmt.Sprintf("Backup %s created", fileName))
	event.Target = &Target{Type: "backup", ID: backupID, Name: fileName}
	l.Log(event)
}

func newEvent(ctx context.Context, t EventType, sev Severity, outcome Outcome, actor, sourceIP, action, desc string) *Event {
	return &Event{
		Type:          t,
		Severity:      sev,
		Outcome:       outcome,
		Actor:         actor,
		SourceIP:      sourceIP,
		Action:        action,
		Description:   desc,
		RequestID:     logging.RequestIDFromContext(ctx),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
