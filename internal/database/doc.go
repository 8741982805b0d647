// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package database provides the DuckDB tweet store.
//
// # Overview
//
// DB implements tweets.Store for the queue consumer: each batch calls Acquire
// to pin one pooled connection, resolves users and inserts tweets through the
// returned Session, and releases it when the batch ends. The same DB stores
// dead-letter records for the DLQ sink and serves the HTTP API.
//
// # Files
//
//   - database.go: lifecycle (open, initialize, close)
//   - database_connection.go: pool configuration and batch sessions
//   - database_utils.go: profiling, query timeouts, checkpoints, record counts
//   - migrations.go: versioned schema (users, tweets, dead_letters)
//   - crud_tweets.go: user lookup, tweet insert, user creation
//   - crud_dead_letters.go: dead-letter persistence and listing
//   - errors.go: sentinels and close helpers
//
// A Postgres implementation of the same contracts lives in the postgres
// subpackage; query holds the WHERE builder both share.
//
// # Schema
//
//	users(id, username UNIQUE, created_at)
//	tweets(id, user_id -> users.id, content, created_at, updated_at)
//	dead_letters(id, message_id, error, failed_attempts, original_message,
//	             raw_payload, failed_at, stored_at)
//
// Timestamps are stored as UTC TIMESTAMP values supplied by the caller, so
// the schema needs no DuckDB extensions.
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	session, err := db.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer session.Release()
//
//	repo := tweets.NewSessionRepository(session)
//	tweet, err := repo.CreateTweet(ctx, req)
//
// # Thread Safety
//
// DB is safe for concurrent use. A Session belongs to one batch and must not
// be shared between goroutines.
package database
