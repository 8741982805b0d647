// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

/*
database_connection.go - Connection Pool and Batch Sessions

A batch pins one pooled connection for its whole run through Acquire. The
pool is sized so that a consumer batch, the dead-letter sink and the HTTP
handlers can hold connections at the same time.

Connection Pool Configuration:
  - MaxOpenConns: DatabaseConfig.MaxConns (at least 2)
  - MaxIdleConns: 2 for efficient connection reuse
  - ConnMaxLifetime: 1 hour to prevent stale connections
  - ConnMaxIdleTime: 5 minutes for idle connection cleanup
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/tweetqueue/internal/metrics"
	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/tweets"
)

// configureConnectionPool sets connection pool parameters
func (db *DB) configureConnectionPool() error {
	maxOpen := int(db.cfg.MaxConns)
	if maxOpen < 2 {
		maxOpen = 2
	}
	db.conn.SetMaxOpenConns(maxOpen)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
	return nil
}

// Session is a store handle pinned to one pooled connection.
type Session struct {
	db      *DB
	conn    *sql.Conn
	release sync.Once
}

var _ tweets.Store = (*DB)(nil)

// Acquire pins a pooled connection for the length of a batch.
func (db *DB) Acquire(ctx context.Context) (tweets.Session, error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	metrics.TrackSession(true)
	return &Session{db: db, conn: conn}, nil
}

// Release returns the connection to the pool.
func (s *Session) Release() {
	s.release.Do(func() {
		closeWithLog(s.conn, "session connection")
		metrics.TrackSession(false)
	})
}

// FindByUsername implements tweets.UserFinder on the pinned connection.
func (s *Session) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return findByUsername(ctx, s.db, s.conn, username)
}

// CreateTweet implements tweets.TweetCreator on the pinned connection.
func (s *Session) CreateTweet(ctx context.Context, tweet *models.Tweet) (*models.Tweet, error) {
	return createTweet(ctx, s.db, s.conn, tweet)
}

// isConnectionError checks if an error indicates database connection loss
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"database is closed",
	} {
		if strings.Contains(errMsg, marker) {
			return true
		}
	}
	return false
}

// isConstraintViolation checks if an error is a DuckDB uniqueness or key violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Constraint Error") ||
		strings.Contains(errStr, "violates primary key constraint") ||
		strings.Contains(errStr, "violates unique constraint")
}
