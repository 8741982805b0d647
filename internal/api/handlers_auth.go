// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tweetqueue/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges the admin credentials for a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Username == "" || req.Password == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "username and password are required", nil)
		return
	}

	ip := clientIP(r)
	token, err := h.auth.Login(req.Username, req.Password, ip)
	var locked *auth.LockedError
	switch {
	case err == nil:
		h.audit.LogAuthSuccess(r.Context(), req.Username, ip)
		respondData(w, http.StatusOK, token, start)
	case errors.As(err, &locked):
		h.audit.LogAuthLockout(r.Context(), req.Username, ip, locked.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(int(locked.RetryAfter.Seconds())+1))
		respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Too many failed logins", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.audit.LogAuthFailure(r.Context(), req.Username, ip, "invalid credentials")
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid username or password", nil)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Login failed", err)
	}
}

// actor names the admin behind a protected request.
func actor(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.Username
	}
	return "anonymous"
}

// clientIP strips the port chi's RealIP may have left on RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
