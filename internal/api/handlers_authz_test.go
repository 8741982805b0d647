// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"net/http"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/tweetqueue/internal/audit"
	"github.com/tomtom215/tweetqueue/internal/auth"
	"github.com/tomtom215/tweetqueue/internal/authz"
	"github.com/tomtom215/tweetqueue/internal/config"
)

func newRBACHandler(t *testing.T) (*Handler, *audit.MemoryStore, *audit.Logger) {
	t.Helper()
	adminHash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	viewerHash, _ := bcrypt.GenerateFromPassword([]byte("look"), bcrypt.MinCost)
	svc, err := auth.NewService(&config.AuthConfig{
		Mode:               config.AuthModeJWT,
		JWTSecret:          "0123456789abcdef0123456789abcdef",
		TokenTTL:           time.Hour,
		Issuer:             "tweetqueue",
		AdminUsername:      "admin",
		AdminPasswordHash:  string(adminHash),
		ViewerUsername:     "ops",
		ViewerPasswordHash: string(viewerHash),
	}, auth.DefaultLockoutConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	store := audit.NewMemoryStore(100)
	cfg := audit.DefaultConfig()
	cfg.LogToStdout = false
	logger := audit.NewLogger(store, cfg)
	t.Cleanup(func() { _ = logger.Close() })

	h, _, _ := newTestHandler(t)
	h.WithAuth(svc, auth.RequireToken(svc.JWT())).WithAudit(logger).WithAuthz(enforcer).WithBackups(&fakeBackuper{})
	return h, store, logger
}

func TestAuthz_RolePermissions(t *testing.T) {
	h, store, logger := newRBACHandler(t)

	login := func(user, pass string) string {
		rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", `{"username":"`+user+`","password":"`+pass+`"}`)
		var token auth.Token
		decodeResponse(t, rec, &token)
		return token.AccessToken
	}
	adminToken := login("admin", "s3cret")
	viewerToken := login("ops", "look")

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		body   string
		want   int
	}{
		{"viewer reads dead letters", viewerToken, http.MethodGet, "/api/v1/dead-letters", "", http.StatusOK},
		{"viewer reads audit", viewerToken, http.MethodGet, "/api/v1/audit", "", http.StatusOK},
		{"viewer creates user", viewerToken, http.MethodPost, "/api/v1/users", `{"username":"mallory"}`, http.StatusForbidden},
		{"admin creates user", adminToken, http.MethodPost, "/api/v1/users", `{"username":"alice"}`, http.StatusCreated},
		{"admin reads audit", adminToken, http.MethodGet, "/api/v1/audit", "", http.StatusOK},
		{"viewer lists backups", viewerToken, http.MethodGet, "/api/v1/backups", "", http.StatusOK},
		{"viewer creates backup", viewerToken, http.MethodPost, "/api/v1/backups", "", http.StatusForbidden},
		{"admin creates backup", adminToken, http.MethodPost, "/api/v1/backups", "", http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := bearerRequest(t, h, tt.method, tt.path, tt.body, tt.token)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	_ = logger.Close()
	denied, _ := store.Query(t.Context(), audit.QueryFilter{Types: []audit.EventType{audit.EventTypeAuthzDenied}})
	if len(denied) != 2 || denied[0].Actor != "ops" {
		t.Errorf("denied events = %+v", denied)
	}
	created, _ := store.Query(t.Context(), audit.QueryFilter{Types: []audit.EventType{audit.EventTypeBackupCreated}})
	if len(created) != 1 || created[0].Actor != "admin" {
		t.Errorf("backup events = %+v", created)
	}
}
