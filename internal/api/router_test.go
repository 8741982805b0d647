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
	"time"

	"github.com/tomtom215/tweetqueue/internal/config"
	"github.com/tomtom215/tweetqueue/internal/middleware"
)

func TestChiMiddlewareConfigFromServer(t *testing.T) {
	cfg := ChiMiddlewareConfigFromServer(config.ServerConfig{
		CORSOrigins:       []string{"https://example.com"},
		RateLimitRequests: 5,
		RateLimitWindow:   time.Second,
		RateLimitDisabled: true,
	})

	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://example.com" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRequests != 5 || cfg.RateLimitWindow != time.Second || !cfg.RateLimitDisabled {
		t.Errorf("rate limit config = %d/%v disabled=%v", cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitDisabled)
	}
	if cfg.CORSMaxAge != 86400 {
		t.Errorf("CORSMaxAge = %d, want default 86400", cfg.CORSMaxAge)
	}
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		config     *ChiMiddlewareConfig
		requests   int
		wantLimits bool
	}{
		{
			name:       "limited",
			config:     &ChiMiddlewareConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute},
			requests:   3,
			wantLimits: true,
		},
		{
			name:     "disabled",
			config:   &ChiMiddlewareConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute, RateLimitDisabled: true},
			requests: 5,
		},
		{
			name:     "zero requests means unlimited",
			config:   &ChiMiddlewareConfig{RateLimitWindow: time.Minute},
			requests: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestHandler(t)
			router := NewRouter(h, NewChiMiddleware(tt.config)).Setup()

			var last int
			for i := 0; i < tt.requests; i++ {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/dead-letters", nil)
				req.RemoteAddr = "192.0.2.10:4711"
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				last = rec.Code
			}

			if tt.wantLimits && last != http.StatusTooManyRequests {
				t.Errorf("expected status 429 after %d requests, got %d", tt.requests, last)
			}
			if !tt.wantLimits && last != http.StatusOK {
				t.Errorf("expected status 200, got %d", last)
			}
		})
	}
}

func TestRateLimit_ExcludesTopLevelRoutes(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := NewRouter(h, NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute})).Setup()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, rec.Code)
		}
	}
}

func TestRouter_Setup(t *testing.T) {
	h, _, _ := newTestHandler(t)
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	router := NewRouter(h, NewChiMiddleware(cfg)).Setup()

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "go_goroutines") {
			t.Error("expected runtime metrics in exposition")
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tweets", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rec.Code)
		}
	})

	t.Run("request id echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if got := rec.Header().Get(middleware.RequestIDHeader); got != "req-123" {
			t.Errorf("request id = %q, want req-123", got)
		}
	})

	t.Run("security headers on api", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dead-letters", nil))
		if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("X-Content-Type-Options = %q", got)
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/tweets", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
	})

	t.Run("cors rejects unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/tweets", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})
}
