// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomtom215/tweetqueue/internal/audit"
	"github.com/tomtom215/tweetqueue/internal/auth"
)

func newAuditHandler(t *testing.T) (*Handler, *audit.MemoryStore, *audit.Logger) {
	t.Helper()
	store := audit.NewMemoryStore(100)
	cfg := audit.DefaultConfig()
	cfg.LogToStdout = false
	logger := audit.NewLogger(store, cfg)
	t.Cleanup(func() { _ = logger.Close() })
	return newAuthHandler(t).WithAudit(logger), store, logger
}

func bearerRequest(t *testing.T, h *Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	router := NewRouter(h, NewChiMiddleware(cfg)).Setup()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, h *Handler) string {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"s3cret"}`)
	var token auth.Token
	decodeResponse(t, rec, &token)
	return token.AccessToken
}

func TestAudit_RecordsAdminActions(t *testing.T) {
	h, store, logger := newAuditHandler(t)

	doRequest(t, h, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"wrong"}`)
	token := loginToken(t, h)

	if rec := bearerRequest(t, h, http.MethodPost, "/api/v1/users", `{"username":"alice"}`, token); rec.Code != http.StatusCreated {
		t.Fatalf("create user = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := bearerRequest(t, h, http.MethodGet, "/api/v1/dead-letters", "", token); rec.Code != http.StatusOK {
		t.Fatalf("dead letters = %d: %s", rec.Code, rec.Body.String())
	}
	_ = logger.Close() // flush

	tests := []struct {
		eventType audit.EventType
		actor     string
	}{
		{audit.EventTypeAuthFailure, "admin"},
		{audit.EventTypeAuthSuccess, "admin"},
		{audit.EventTypeUserCreated, "admin"},
		{audit.EventTypeDeadLettersRead, "admin"},
	}
	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			events, _ := store.Query(t.Context(), audit.QueryFilter{Types: []audit.EventType{tt.eventType}})
			if len(events) != 1 {
				t.Fatalf("got %d events, want 1", len(events))
			}
			if events[0].Actor != tt.actor {
				t.Errorf("actor = %q, want %q", events[0].Actor, tt.actor)
			}
			if events[0].RequestID == "" {
				t.Error("missing request id")
			}
		})
	}
}

func TestAuditEvents_Listing(t *testing.T) {
	h, _, _ := newAuditHandler(t)

	if rec := doRequest(t, h, http.MethodGet, "/api/v1/audit", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("audit without token = %d, want 401", rec.Code)
	}

	doRequest(t, h, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"wrong"}`)
	token := loginToken(t, h)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", http.StatusOK},
		{"by type", "?type=auth.failure", http.StatusOK},
		{"by outcome and actor", "?outcome=success&actor=admin", http.StatusOK},
		{"bad type", "?type=tweet.created", http.StatusBadRequest},
		{"bad since", "?since=yesterday", http.StatusBadRequest},
		{"bad limit", "?limit=0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := bearerRequest(t, h, http.MethodGet, "/api/v1/audit"+tt.query, "", token)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			var body auditEventsResponse
			decodeResponse(t, rec, &body)
			if body.Count != len(body.Events) {
				t.Errorf("count = %d, events = %d", body.Count, len(body.Events))
			}
			if body.Limit != audit.DefaultQueryLimit {
				t.Errorf("limit = %d, want %d", body.Limit, audit.DefaultQueryLimit)
			}
		})
	}
}

func TestAuditEvents_NotRoutedWithoutAuth(t *testing.T) {
	h, _, _ := newTestHandler(t)
	logger := audit.NewLogger(nil, audit.DefaultConfig())
	t.Cleanup(func() { _ = logger.Close() })
	h.WithAudit(logger)

	if rec := doRequest(t, h, http.MethodGet, "/api/v1/audit", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
