// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tweetqueue/internal/authz"
	"github.com/tomtom215/tweetqueue/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	metrics       http.Handler
}

// NewRouter creates a router. A nil mw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		metrics:       promhttp.Handler(),
	}
}

// Setup configures all HTTP routes:
//
//	GET  /                               liveness ("Hello World")
//	GET  /healthz                        aggregated component health
//	GET  /metrics                        Prometheus exposition
//	POST /api/v1/tweets                  enqueue a create-tweet request (202)
//	POST /api/v1/users                   create a user (201, 409 if taken)
//	GET  /api/v1/users/{username}/tweets list a user's tweets
//	GET  /api/v1/dead-letters            list dead-letter records
//	POST /api/v1/auth/login              admin token (when auth is enabled)
//	GET  /api/v1/audit                   admin audit trail (auth and audit enabled)
//	GET  /api/v1/stream                  live WebSocket feed
//
// With auth enabled, user creation, dead-letter listing and the audit
// trail need a bearer token whose role the authz policy allows. The stream route sits outside compression and security headers so
// the upgrade is untouched.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.Get("/", router.handler.Root)
	r.Get("/healthz", router.handler.Healthz)
	r.Method(http.MethodGet, "/metrics", router.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())

		r.Get("/stream", router.handler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SecurityHeaders)
			r.Use(chimiddleware.Compress(5, "application/json"))

			r.Post("/tweets", router.handler.EnqueueTweet)
			r.Get("/users/{username}/tweets", router.handler.UserTweets)

			if router.handler.auth != nil {
				r.Post("/auth/login", router.handler.Login)
			}

			r.Group(func(r chi.Router) {
				if router.handler.protect != nil {
					r.Use(router.handler.protect)
				}
				r.With(router.handler.require(authz.ObjectUsers)).Post("/users", router.handler.CreateUser)
				r.With(router.handler.require(authz.ObjectDeadLetters)).Get("/dead-letters", router.handler.DeadLetters)
				if router.handler.audit != nil && router.handler.protect != nil {
					r.With(router.handler.require(authz.ObjectAudit)).Get("/audit", router.handler.AuditEvents)
				}
				if router.handler.backups != nil {
					r.With(router.handler.require(authz.ObjectBackups)).Get("/backups", router.handler.Backups)
					r.With(router.handler.require(authz.ObjectBackups)).Post("/backups", router.handler.CreateBackup)
				}
			})
		})
	})

	return r
}
