// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package wal

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
)

const maxBackoff = 5 * time.Minute

// RetryLoop periodically republishes pending entries with exponential
// backoff. Entries past EntryTTL or MaxRetries are dropped.
type RetryLoop struct {
	wal       *BadgerWAL
	publisher Publisher
	config    Config

	mu       sync.Mutex
	cancel   context.CancelFunc
	running  bool
	stopping bool
	stopDone chan struct{}
}

// NewRetryLoop creates a loop that republishes through publisher.
func NewRetryLoop(w *BadgerWAL, publisher Publisher) *RetryLoop {
	return &RetryLoop{
		wal:       w,
		publisher: publisher,
		config:    w.Config(),
	}
}

// Start launches the loop. Calling Start on a running loop is a no-op.
func (r *RetryLoop) Start(ctx context.Context) error {
	r.mu.Lock()
	for r.stopping {
		done := r.stopDone
		r.mu.Unlock()
		<-done
		r.mu.Lock()
	}
	if r.running {
		r.mu.Unlock()
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.stopDone = make(chan struct{})
	done := r.stopDone
	r.mu.Unlock()

	go r.run(loopCtx, done)

	logging.Info().
		Dur("interval", r.config.RetryInterval).
		Int("max_retries", r.config.MaxRetries).
		Msg("Outbox retry loop started")
	return nil
}

// Stop cancels the loop and waits for the current pass to finish.
func (r *RetryLoop) Stop() {
	r.mu.Lock()
	if !r.running || r.stopping {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.running = false
	r.stopping = true
	done := r.stopDone
	r.mu.Unlock()

	<-done

	r.mu.Lock()
	r.stopping = false
	r.mu.Unlock()
	logging.Info().Msg("Outbox retry loop stopped")
}

func (r *RetryLoop) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *RetryLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.retryPending(ctx)
		}
	}
}

type retryResult int

const (
	retrySuccess retryResult = iota
	retryFailed
	retryExpired
	retryMaxRetried
	retrySkipped
)

// retryPending makes one pass over the pending entries.
func (r *RetryLoop) retryPending(ctx context.Context) {
	entries, err := r.wal.GetPending(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Outbox retry failed to list pending entries")
		}
		return
	}
	if len(entries) == 0 {
		return
	}

	counts := make(map[retryResult]int)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		counts[r.processEntry(ctx, entry)]++
	}

	if counts[retrySuccess]+counts[retryFailed]+counts[retryExpired]+counts[retryMaxRetried] > 0 {
		logging.Info().
			Int("succeeded", counts[retrySuccess]).
			Int("failed", counts[retryFailed]).
			Int("expired", counts[retryExpired]).
			Int("max_retried", counts[retryMaxRetried]).
			Msg("Outbox retry pass complete")
	}
	r.wal.Stats()
}

func (r *RetryLoop) processEntry(ctx context.Context, entry *Entry) retryResult {
	if !r.wal.TryClaimEntry(entry.ID) {
		return retrySkipped
	}
	defer r.wal.ReleaseEntry(entry.ID)

	if r.wal.entryAge(entry) > r.config.EntryTTL {
		r.drop(ctx, entry, "expired")
		return retryExpired
	}
	if entry.Attempts >= r.config.MaxRetries {
		r.drop(ctx, entry, "max_retries")
		return retryMaxRetried
	}
	if !r.readyForRetry(entry) {
		return retrySkipped
	}

	if err := deliverEntry(ctx, r.wal, r.publisher, entry); err != nil {
		logging.Warn().
			Err(err).
			Str("entry_id", entry.ID).
			Int("attempt", entry.Attempts+1).
			Msg("Outbox retry publish failed")
		return retryFailed
	}
	return retrySuccess
}

func (r *RetryLoop) drop(ctx context.Context, entry *Entry, reason string) {
	logging.Warn().
		Str("entry_id", entry.ID).
		Str("reason", reason).
		Int("attempts", entry.Attempts).
		Str("last_error", entry.LastError).
		Msg("Outbox dropping undelivered entry")
	if err := r.wal.DeleteEntry(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("Outbox failed to delete entry")
	}
	metrics.RecordOutboxDelivery(reason)
}

func (r *RetryLoop) readyForRetry(entry *Entry) bool {
	if entry.LastAttemptAt.IsZero() {
		return true
	}
	return r.wal.now().Sub(entry.LastAttemptAt) >= r.backoff(entry.Attempts)
}

// backoff is RetryBackoff * 2^attempts, capped at five minutes.
func (r *RetryLoop) backoff(attempts int) time.Duration {
	if attempts > 50 {
		return maxBackoff
	}
	d := time.Duration(float64(r.config.RetryBackoff) * math.Pow(2, float64(attempts)))
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
