// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package authz

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tweetqueue/internal/auth"
	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/models"
)

// ErrCodeForbidden is the API error code for a role without permission.
const ErrCodeForbidden = "FORBIDDEN"

// DenyFunc is told about every refused request.
type DenyFunc func(r *http.Request, username, object, action string)

// Middleware enforces the policy on routes that already passed
// auth.RequireToken.
type Middleware struct {
	enforcer *Enforcer
	onDeny   DenyFunc
}

// NewMiddleware creates the authorization middleware. onDeny may be nil.
func NewMiddleware(enforcer *Enforcer, onDeny DenyFunc) *Middleware {
	return &Middleware{enforcer: enforcer, onDeny: onDeny}
}

// Require checks the token's role against object, with the action taken
// from the request method. A nil Middleware allows everything.
func (m *Middleware) Require(object string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			action := methodToAction(r.Method)

			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusForbidden, ErrCodeForbidden, "No authentication context")
				return
			}

			allowed, err := m.enforcer.Enforce(claims.Role, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authorization failed")
				return
			}
			if !allowed {
				if m.onDeny != nil {
					m.onDeny(r, claims.Username, object, action)
				}
				writeError(w, http.StatusForbidden, ErrCodeForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// methodToAction maps HTTP methods to policy actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	default:
		return ActionWrite
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	data, err := json.Marshal(&models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
	if err != nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
