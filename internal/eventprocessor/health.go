// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"sync"
	"time"
)

// HealthStatusType is the aggregated status reported by /healthz.
type HealthStatusType string

const (
	HealthStatusHealthy   HealthStatusType = "healthy"
	HealthStatusDegraded  HealthStatusType = "degraded"
	HealthStatusUnhealthy HealthStatusType = "unhealthy"
)

// HealthConfig bounds each component check.
type HealthConfig struct {
	Timeout time.Duration
}

// DefaultHealthConfig returns a 5s per-component timeout.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{Timeout: 5 * time.Second}
}

// ComponentHealth is the result of one component check. Degraded components
// are still Healthy.
type ComponentHealth struct {
	Healthy   bool                   `json:"healthy"`
	Degraded  bool                   `json:"degraded,omitempty"`
	Name      string                 `json:"name"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	LastCheck time.Time              `json:"last_check"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func (c ComponentHealth) status() HealthStatusType {
	switch {
	case !c.Healthy:
		return HealthStatusUnhealthy
	case c.Degraded:
		return HealthStatusDegraded
	default:
		return HealthStatusHealthy
	}
}

// HealthCheckable is implemented by the consumer, the publisher, the NATS
// server and anything else registered with a HealthChecker.
type HealthCheckable interface {
	HealthCheck(ctx context.Context) ComponentHealth
}

// HealthFunc adapts a function to HealthCheckable.
type HealthFunc func(ctx context.Context) ComponentHealth

// HealthCheck implements HealthCheckable.
func (f HealthFunc) HealthCheck(ctx context.Context) ComponentHealth { return f(ctx) }

// OverallHealth is the worst status across all components.
type OverallHealth struct {
	Healthy    bool                       `json:"healthy"`
	Status     HealthStatusType           `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker runs registered component checks concurrently.
type HealthChecker struct {
	timeout    time.Duration
	mu         sync.RWMutex
	components map[string]HealthCheckable
}

// NewHealthChecker creates an empty checker.
func NewHealthChecker(cfg HealthConfig) *HealthChecker {
	if cfg.Timeout <= 0 {
		cfg = DefaultHealthConfig()
	}
	return &HealthChecker{
		timeout:    cfg.Timeout,
		components: make(map[string]HealthCheckable),
	}
}

// RegisterComponent adds or replaces the check registered under name.
func (h *HealthChecker) RegisterComponent(name string, component HealthCheckable) {
	h.mu.Lock()
	h.components[name] = component
	h.mu.Unlock()
}

// CheckAll runs every check and aggregates the results. A check that does
// not answer within the timeout counts as unhealthy.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	h.mu.RLock()
	names := make([]string, 0, len(h.components))
	checks := make([]HealthCheckable, 0, len(h.components))
	for name, c := range h.components {
		names = append(names, name)
		checks = append(checks, c)
	}
	h.mu.RUnlock()

	results := make([]ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for i := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.run(ctx, names[i], checks[i])
		}()
	}
	wg.Wait()

	overall := OverallHealth{
		Healthy:    true,
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth, len(results)),
	}
	for _, r := range results {
		overall.Components[r.Name] = r
		switch r.status() {
		case HealthStatusUnhealthy:
			overall.Healthy = false
			overall.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overall.Status == HealthStatusHealthy {
				overall.Status = HealthStatusDegraded
			}
		}
	}
	return overall
}

// CheckComponent runs the check registered under name.
func (h *HealthChecker) CheckComponent(ctx context.Context, name string) ComponentHealth {
	h.mu.RLock()
	c, ok := h.components[name]
	h.mu.RUnlock()

	if !ok {
		return ComponentHealth{Name: name, Error: "component not registered", LastCheck: time.Now()}
	}
	return h.run(ctx, name, c)
}

func (h *HealthChecker) run(ctx context.Context, name string, c HealthCheckable) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	done := make(chan ComponentHealth, 1)
	go func() { done <- c.HealthCheck(ctx) }()

	var result ComponentHealth
	select {
	case result = <-done:
	case <-ctx.Done():
		result = ComponentHealth{Error: "health check timed out after " + h.timeout.String()}
	}
	result.Name = name
	result.LastCheck = time.Now()
	return result
}

// HealthCheck implements HealthCheckable for BatchConsumer.
// A consumer whose retries keep failing to dispatch is reported degraded.
func (c *BatchConsumer) HealthCheck(ctx context.Context) ComponentHealth {
	stats := c.Stats()

	details := map[string]interface{}{
		"messages_received":      stats.MessagesReceived,
		"messages_processed":     stats.MessagesProcessed,
		"messages_requeued":      stats.MessagesRequeued,
		"messages_dead_lettered": stats.MessagesDeadLettered,
		"messages_dropped":       stats.MessagesDropped,
		"dispatch_failures":      stats.DispatchFailures,
		"batches_processed":      stats.BatchesProcessed,
	}
	if !stats.LastMessageTime.IsZero() {
		details["last_message_time"] = stats.LastMessageTime.Format(time.RFC3339)
		details["time_since_last_message"] = time.Since(stats.LastMessageTime).String()
	}

	if !c.IsRunning() {
		return ComponentHealth{
			Healthy: false,
			Error:   "consumer is not running",
			Details: details,
		}
	}

	if stats.MessagesReceived > 100 {
		failureRate := float64(stats.DispatchFailures) / float64(stats.MessagesReceived)
		if failureRate > 0.1 {
			return ComponentHealth{
				Healthy:  true,
				Degraded: true,
				Message:  "high retry dispatch failure rate",
				Details:  details,
			}
		}
	}

	return ComponentHealth{
		Healthy: true,
		Message: "consumer is running",
		Details: details,
	}
}

// HealthCheck implements HealthCheckable for Publisher.
func (p *Publisher) HealthCheck(ctx context.Context) ComponentHealth {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return ComponentHealth{
			Healthy: false,
			Error:   "publisher is closed",
		}
	}

	details := map[string]interface{}{}

	if p.circuitBreaker != nil {
		state := p.circuitBreaker.State()
		details["circuit_breaker_state"] = state.String()

		switch state {
		case 2: // Open
			return ComponentHealth{
				Healthy: false,
				Error:   "circuit breaker is open",
				Details: details,
			}
		case 1: // Half-Open
			return ComponentHealth{
				Healthy:  true,
				Degraded: true,
				Message:  "circuit breaker is half-open",
				Details:  details,
			}
		}
	}

	return ComponentHealth{
		Healthy: true,
		Message: "publisher is operational",
		Details: details,
	}
}

// Pinger is implemented by stores that can verify their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingHealth adapts a Pinger to HealthCheckable.
type PingHealth struct {
	Pinger Pinger
}

// HealthCheck implements HealthCheckable for PingHealth.
func (h PingHealth) HealthCheck(ctx context.Context) ComponentHealth {
	if h.Pinger == nil {
		return ComponentHealth{Healthy: false, Error: "not configured"}
	}
	start := time.Now()
	if err := h.Pinger.Ping(ctx); err != nil {
		return ComponentHealth{Healthy: false, Error: err.Error()}
	}
	return ComponentHealth{
		Healthy: true,
		Message: "connection is alive",
		Details: map[string]interface{}{"ping_ms": time.Since(start).Milliseconds()},
	}
}
