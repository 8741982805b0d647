// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package audit keeps a trail of administrative actions: admin logins
// (successful, failed and refused during lockout), requests refused by the
// role policy, user creation and reads of the dead-letter and audit
// listings.
//
// Events are handed to a buffered channel and written by a background
// goroutine so the request path never waits on the store:
//
//	Logger.Log() -> buffer (chan) -> async writer -> Store
//
// When the buffer is full the event is dropped and counted in
// audit_events_total{result="dropped"}. MemoryStore is the only Store; it
// evicts the oldest tenth of its events when full, and RunCleanup prunes
// events past the retention period.
//
// A nil *Logger is valid and records nothing, so handlers can call it
// unconditionally.
//
// Example:
//
//	logger := audit.NewLogger(nil, audit.FromAppConfig(&cfg.Audit))
//	defer logger.Close()
//	logger.LogAuthFailure(ctx, "admin", "10.0.0.7", "invalid credentials")
//	events, _ := logger.Query(ctx, audit.QueryFilter{Types: []audit.EventType{audit.EventTypeAuthFailure}})
package audit
