// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tweetqueue/internal/config"
	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
)

var (
	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// LockedError is returned while a client is locked out.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed logins, retry in %s", e.RetryAfter.Round(time.Second))
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service checks account credentials and issues tokens.
type Service struct {
	accounts []*Account
	jwt      *JWTManager
	lockout  *Lockout
}

// NewService builds the login service from the auth config. The viewer
// account is added only when VIEWER_USERNAME is set.
func NewService(cfg *config.AuthConfig, lockout LockoutConfig) (*Service, error) {
	admin, err := NewAccount(cfg.AdminUsername, cfg.AdminPasswordHash, RoleAdmin)
	if err != nil {
		return nil, err
	}
	accounts := []*Account{admin}

	if cfg.ViewerUsername != "" {
		viewer, err := NewAccount(cfg.ViewerUsername, cfg.ViewerPasswordHash, RoleViewer)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, viewer)
	}

	manager, err := NewJWTManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		accounts: accounts,
		jwt:      manager,
		lockout:  NewLockout(lockout),
	}, nil
}

// JWT returns the token manager for the request middleware.
func (s *Service) JWT() *JWTManager {
	return s.jwt
}

// Login verifies the credentials presented by clientIP. Failed attempts
// count toward a per-client lockout.
func (s *Service) Login(username, password, clientIP string) (*Token, error) {
	if locked, remaining := s.lockout.Locked(clientIP); locked {
		metrics.RecordAuthAttempt(false)
		return nil, &LockedError{RetryAfter: remaining}
	}

	account := s.verify(username, password)
	if account == nil {
		metrics.RecordAuthAttempt(false)
		if locked, remaining := s.lockout.RecordFailure(clientIP); locked {
			return nil, &LockedError{RetryAfter: remaining}
		}
		return nil, ErrInvalidCredentials
	}

	s.lockout.RecordSuccess(clientIP)
	signed, expires, err := s.jwt.GenerateToken(username, account.Role())
	if err != nil {
		return nil, err
	}
	metrics.RecordAuthAttempt(true)
	logging.Info().Str("username", username).Str("role", account.Role()).Msg("Admin login")

	return &Token{AccessToken: signed, TokenType: "Bearer", Role: account.Role(), ExpiresAt: expires.UTC()}, nil
}

// verify checks every account so the response time does not reveal which
// usernames exist.
func (s *Service) verify(username, password string) *Account {
	var match *Account
	for _, a := range s.accounts {
		if a.Verify(username, password) && match == nil {
			match = a
		}
	}
	return match
}
