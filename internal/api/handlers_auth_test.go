// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/tweetqueue/internal/auth"
	"github.com/tomtom215/tweetqueue/internal/config"
	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/websocket"
)

func newAuthHandler(t *testing.T) *Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc, err := auth.NewService(&config.AuthConfig{
		Mode:              config.AuthModeJWT,
		JWTSecret:         "0123456789abcdef0123456789abcdef",
		TokenTTL:          time.Hour,
		Issuer:            "tweetqueue",
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
	}, auth.DefaultLockoutConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	h, _, _ := newTestHandler(t)
	return h.WithAuth(svc, auth.RequireToken(svc.JWT()))
}

func TestLogin(t *testing.T) {
	h := newAuthHandler(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"username":"admin","password":"s3cret"}`, http.StatusOK},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"missing password", `{"username":"admin"}`, http.StatusBadRequest},
		{"not json", `nope`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			var token auth.Token
			decodeResponse(t, rec, &token)
			if token.AccessToken == "" || token.TokenType != "Bearer" {
				t.Errorf("token = %+v", token)
			}
		})
	}
}

func TestLogin_LocksOutAfterRepeatedFailures(t *testing.T) {
	h := newAuthHandler(t)

	var rec *httptest.ResponseRecorder
	for i := 0; i < auth.DefaultLockoutConfig().MaxAttempts; i++ {
		rec = doRequest(t, h, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"nope"}`)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestLogin_DisabledWithoutAuth(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"s3cret"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newAuthHandler(t)

	if rec := doRequest(t, h, http.MethodGet, "/api/v1/dead-letters", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("dead-letters without token = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/users", `{"username":"alice"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("create user without token = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/tweets", `{"content":"hi","user":"alice"}`); rec.Code != http.StatusAccepted {
		t.Errorf("enqueue stays public: status = %d, want 202", rec.Code)
	}

	login := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"s3cret"}`)
	var token auth.Token
	decodeResponse(t, login, &token)

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	router := NewRouter(h, NewChiMiddleware(cfg)).Setup()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dead-letters", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("dead-letters with token = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestStream_DisabledWithoutFeed(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/api/v1/stream", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestStream_DeliversPipelineEvents(t *testing.T) {
	hub := websocket.NewHub(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h, _, _ := newTestHandler(t)
	h.WithFeed(hub, []string{"https://app.example.com"})
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	server := httptest.NewServer(NewRouter(h, NewChiMiddleware(cfg)).Setup())
	t.Cleanup(server.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/stream"

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	if _, resp, err := gorillaws.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Fatal("dial from foreign origin succeeded")
	} else if resp != nil {
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("foreign origin status = %d, want 403", resp.StatusCode)
		}
	}

	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"https://app.example.com"}})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	resp.Body.Close()
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// the hub allows one client
	if rec := doRequest(t, h, http.MethodGet, "/api/v1/stream", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("second client status = %d, want 503", rec.Code)
	}

	hub.TweetFailed(&models.TweetFailure{MessageID: "m-1", User: "alice", Error: "User not found", Outcome: "dead_lettered"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != websocket.MessageTypeTweetFailed {
		t.Errorf("type = %q, want %q", msg.Type, websocket.MessageTypeTweetFailed)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com/"})
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "api.example.com", true},
		{"https://app.example.com", "api.example.com", true},
		{"https://API.example.com", "api.example.com", true},
		{"https://evil.example.com", "api.example.com", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil)
		req.Host = tt.host
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := check(req); got != tt.want {
			t.Errorf("origin %q on %s = %v, want %v", tt.origin, tt.host, got, tt.want)
		}
	}

	if !originChecker([]string{"*"})(httptest.NewRequest(http.MethodGet, "/", nil)) {
		t.Error("wildcard rejected request")
	}
}
