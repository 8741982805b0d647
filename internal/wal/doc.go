// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package wal provides the durable outbox in front of the create-tweets
// topic, backed by BadgerDB.
//
// An API enqueue is written to disk before it is published, so a transport
// outage between accepting a request and publishing it does not lose the
// tweet:
//
//	Enqueue → Write (pending:, fsync) → Publish → Confirm (confirmed:)
//	                                        ↓ on failure
//	                               entry stays pending
//
// # Components
//
//   - BadgerWAL: entry storage with pending and confirmed key prefixes
//   - Outbox: Enqueue/Send front end; the entry id is the message id
//   - RetryLoop: republishes pending entries with exponential backoff
//   - Compactor: deletes confirmed and expired entries, runs value log GC
//   - RecoverPending: one pass over leftovers at startup
//
// Delivery is at-least-once. A crash between Publish and Confirm republishes
// the entry under the same message id.
//
// # Usage
//
//	w, err := wal.Open(wal.FromAppConfig(&cfg.Outbox))
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	outbox := wal.NewOutbox(w, createChannel)
//	if _, err := w.RecoverPending(ctx, outbox); err != nil {
//	    return err
//	}
//	retry := wal.NewRetryLoop(w, outbox)
//	compactor := wal.NewCompactor(w)
//
// The loops implement Start/Stop/IsRunning and are supervised through
// services.NewOutboxRetryService and services.NewOutboxCompactorService.
package wal
