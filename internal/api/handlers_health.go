// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/tweetqueue/internal/eventprocessor"
)

// healthTimeout bounds one /healthz evaluation.
const healthTimeout = 5 * time.Second

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	eventprocessor.OverallHealth
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// Healthz reports aggregated component health. Healthy and degraded answer
// 200; unhealthy answers 503 so load balancers stop routing to the instance.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		OverallHealth: eventprocessor.OverallHealth{
			Healthy:    true,
			Status:     eventprocessor.HealthStatusHealthy,
			Timestamp:  time.Now().UTC(),
			Components: map[string]eventprocessor.ComponentHealth{},
		},
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		resp.OverallHealth = h.health.CheckAll(ctx)
	}

	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, resp)
}
