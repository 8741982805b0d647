// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/tweetqueue/internal/metrics"
)

func newMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/users/{username}/tweets", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	r.Post("/api/v1/tweets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.WriteHeader(http.StatusOK) // ignored by net/http; first code wins
	})
	return r
}

func TestPrometheusMetrics(t *testing.T) {
	router := newMetricsRouter()

	tests := []struct {
		name     string
		method   string
		path     string
		endpoint string
		status   string
	}{
		{"route pattern replaces path params", http.MethodGet, "/api/v1/users/alice/tweets", "/api/v1/users/{username}/tweets", "200"},
		{"explicit status", http.MethodPost, "/api/v1/tweets", "/api/v1/tweets", "202"},
		{"first status code wins", http.MethodGet, "/boom", "/boom", "500"},
		{"unmatched route", http.MethodGet, "/nope/12345", unmatchedRoute, "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := metrics.APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.status)
			before := testutil.ToFloat64(counter)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("api_requests_total{%s,%s,%s} delta = %v, want 1", tt.method, tt.endpoint, tt.status, got)
			}
		})
	}
}

func TestPrometheusMetrics_ActiveRequestsReturnToBaseline(t *testing.T) {
	before := testutil.ToFloat64(metrics.APIActiveRequests)

	var during float64
	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(metrics.APIActiveRequests)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if during != before+1 {
		t.Errorf("expected active requests %v during request, got %v", before+1, during)
	}
	if after := testutil.ToFloat64(metrics.APIActiveRequests); after != before {
		t.Errorf("expected active requests %v after request, got %v", before, after)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	counter := metrics.APIRateLimitHits.WithLabelValues(unmatchedRoute)
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	RateLimitExceeded(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tweets", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("rate limit hits delta = %v, want 1", got)
	}
}

func TestMetricsResponseWriter_Hijack(t *testing.T) {
	rw := &metricsResponseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	if _, _, err := rw.Hijack(); err == nil {
		t.Fatal("Hijack on a recorder succeeded")
	}
	if rw.wroteHeader {
		t.Error("failed hijack marked the header written")
	}
}
