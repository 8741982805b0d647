// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
)

// RecoveryResult summarises a startup recovery pass.
type RecoveryResult struct {
	TotalPending int
	Recovered    int
	Failed       int
	Expired      int
	Skipped      int
	Duration     time.Duration
}

// RecoverPending republishes every entry left pending by a previous run.
// Entries that fail stay pending for the retry loop.
func (w *BadgerWAL) RecoverPending(ctx context.Context, publisher Publisher) (*RecoveryResult, error) {
	if publisher == nil {
		return nil, errors.New("publisher cannot be nil")
	}

	start := time.Now()
	entries, err := w.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending entries: %w", err)
	}

	result := &RecoveryResult{TotalPending: len(entries)}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		if !w.TryClaimEntry(entry.ID) {
			result.Skipped++
			continue
		}
		w.recoverEntry(ctx, entry, publisher, result)
		w.ReleaseEntry(entry.ID)
	}
	result.Duration = time.Since(start)

	if result.TotalPending > 0 {
		logging.Info().
			Int("recovered", result.Recovered).
			Int("failed", result.Failed).
			Int("expired", result.Expired).
			Int("skipped", result.Skipped).
			Dur("duration", result.Duration).
			Msg("Outbox recovery complete")
	}
	w.Stats()
	return result, nil
}

func (w *BadgerWAL) recoverEntry(ctx context.Context, entry *Entry, publisher Publisher, result *RecoveryResult) {
	if w.entryAge(entry) > w.config.EntryTTL {
		if err := w.DeleteEntry(ctx, entry.ID); err != nil {
			logging.Error().Err(err).Str("entry_id", entry.ID).Msg("Outbox recovery failed to delete expired entry")
		}
		metrics.RecordOutboxDelivery("expired")
		result.Expired++
		return
	}

	if err := deliverEntry(ctx, w, publisher, entry); err != nil {
		logging.Warn().Err(err).Str("entry_id", entry.ID).Msg("Outbox recovery publish failed")
		result.Failed++
		return
	}
	result.Recovered++
}
