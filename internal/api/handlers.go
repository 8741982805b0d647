// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"context"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/tweetqueue/internal/audit"
	"github.com/tomtom215/tweetqueue/internal/auth"
	"github.com/tomtom215/tweetqueue/internal/authz"
	"github.com/tomtom215/tweetqueue/internal/eventprocessor"
	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/websocket"
)

// Store is the read/write surface the API needs. Both database.DB and
// postgres.Store satisfy it.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username string) (*models.User, error)
	ListTweetsByUser(ctx context.Context, username string, limit int) ([]models.Tweet, error)
	ListDeadLetters(ctx context.Context, filter models.DeadLetterFilter) ([]*models.DeadLetterRecord, error)
}

// Enqueuer publishes create-tweet envelopes. Satisfied by
// *eventprocessor.TopicChannel and *wal.Outbox.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload interface{}) (string, error)
	Topic() string
}

// HealthReporter aggregates component health. Satisfied by
// *eventprocessor.HealthChecker.
type HealthReporter interface {
	CheckAll(ctx context.Context) eventprocessor.OverallHealth
}

// Authenticator exchanges admin credentials for a token. Satisfied by
// *auth.Service.
type Authenticator interface {
	Login(username, password, clientIP string) (*auth.Token, error)
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_tweets.go: liveness, enqueue, tweet listing
//   - handlers_users.go: user seeding
//   - handlers_dead_letters.go: dead-letter listing
//   - handlers_health.go: aggregated health
//   - handlers_auth.go: admin login
//   - handlers_stream.go: live WebSocket feed
//   - handlers_audit.go: admin audit trail
//   - handlers_backups.go: store backups
type Handler struct {
	store     Store
	queue     Enqueuer
	health    HealthReporter
	startTime time.Time

	// optional
	auth     Authenticator
	protect  func(http.Handler) http.Handler
	feed     *websocket.Hub
	upgrader gorillaws.Upgrader
	audit    *audit.Logger
	authz    *authz.Middleware
	backups  Backuper
}

// NewHandler creates a handler. health may be nil, in which case /healthz
// reports only uptime.
func NewHandler(store Store, queue Enqueuer, health HealthReporter) (*Handler, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if queue == nil {
		return nil, ErrQueueRequired
	}
	return &Handler{
		store:     store,
		queue:     queue,
		health:    health,
		startTime: time.Now(),
	}, nil
}

// WithAuth enables POST /api/v1/auth/login and wraps the admin routes in
// protect.
func (h *Handler) WithAuth(svc Authenticator, protect func(http.Handler) http.Handler) *Handler {
	h.auth = svc
	h.protect = protect
	return h
}

// WithAudit records admin actions to logger and enables GET
// /api/v1/audit. It only has an effect together with WithAuth.
func (h *Handler) WithAudit(logger *audit.Logger) *Handler {
	h.audit = logger
	return h
}

// WithAuthz checks the token's role against enforcer on each admin route.
// Refusals are recorded in the audit trail when one is configured.
func (h *Handler) WithAuthz(enforcer *authz.Enforcer) *Handler {
	h.authz = authz.NewMiddleware(enforcer, h.logDenied)
	return h
}

// require returns the policy check for object, or a no-op without
// WithAuthz.
func (h *Handler) require(object string) func(http.Handler) http.Handler {
	return h.authz.Require(object)
}

func (h *Handler) logDenied(r *http.Request, username, object, action string) {
	h.audit.LogAuthzDenied(r.Context(), username, clientIP(r), object, action)
}

// WithBackups enables GET and POST /api/v1/backups. Like the other admin
// routes they are open unless WithAuth is also used.
func (h *Handler) WithBackups(b Backuper) *Handler {
	h.backups = b
	return h
}

// WithFeed enables GET /api/v1/stream. Browser origins are checked against
// allowedOrigins; "*" allows any.
func (h *Handler) WithFeed(hub *websocket.Hub, allowedOrigins []string) *Handler {
	h.feed = hub
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}
