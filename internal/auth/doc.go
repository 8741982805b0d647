// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package auth protects the administrative API endpoints.
//
// The admin account is configured with ADMIN_USERNAME and a bcrypt
// ADMIN_PASSWORD_HASH; an optional read-only account uses VIEWER_USERNAME
// and VIEWER_PASSWORD_HASH. POST /api/v1/auth/login exchanges either set of
// credentials for an HS256 JWT carrying the account's role, and
// RequireToken checks the bearer token on the admin routes (user seeding,
// dead-letter listing, the audit trail and backups). What each role may do is
// decided by internal/authz. Tweet enqueueing and reading stay public.
//
// # Components
//
//   - JWTManager: token issue and validation (golang-jwt/jwt/v5)
//   - Account: constant-time credential check (x/crypto/bcrypt)
//   - Lockout: per-client failed-login tracking with doubling lockouts
//   - Service: Login ties the three together and records metrics
//   - RequireToken: chi-compatible bearer middleware
//
// Auth is off unless AUTH_MODE=jwt.
//
// # Usage
//
//	svc, err := auth.NewService(&cfg.Auth, auth.DefaultLockoutConfig())
//	if err != nil {
//	    return err
//	}
//	r.With(auth.RequireToken(svc.JWT())).Post("/users", handler.CreateUser)
package auth
