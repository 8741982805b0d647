// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
	"github.com/tomtom215/tweetqueue/internal/models"
)

// RetryOutcome is where a failed message went.
type RetryOutcome int

const (
	// RetryOutcomeNone means nothing was sent (dispatch failed or was not attempted).
	RetryOutcomeNone RetryOutcome = iota
	// RetryOutcomeRequeued means the message went back to the main topic.
	RetryOutcomeRequeued
	// RetryOutcomeDeadLettered means the message went to the dead-letter topic.
	RetryOutcomeDeadLettered
	// RetryOutcomeDropped means the budget was spent and no dead-letter channel exists.
	RetryOutcomeDropped
)

// String returns the outcome name used in logs.
func (o RetryOutcome) String() string {
	switch o {
	case RetryOutcomeRequeued:
		return "requeued"
	case RetryOutcomeDeadLettered:
		return "dead_lettered"
	case RetryOutcomeDropped:
		return "dropped"
	default:
		return "none"
	}
}

// Dead-letter reasons used as metric labels.
const (
	deadLetterReasonExhausted   = "retries_exhausted"
	deadLetterReasonUndecodable = "undecodable"
)

// RetryDispatcher routes failed create-tweet messages. A message under its
// retry budget is re-enqueued with its count incremented; otherwise it is
// dead-lettered, or dropped when no dead-letter channel is configured.
type RetryDispatcher struct {
	config     RetryConfig
	retry      Channel
	deadLetter Channel
	now        func() time.Time
}

// NewRetryDispatcher creates a dispatcher. deadLetter may be nil.
func NewRetryDispatcher(cfg RetryConfig, retry, deadLetter Channel) (*RetryDispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if retry == nil {
		return nil, fmt.Errorf("%w: retry channel is required", ErrInvalidConfig)
	}
	return &RetryDispatcher{
		config:     cfg,
		retry:      retry,
		deadLetter: deadLetter,
		now:        time.Now,
	}, nil
}

// MaxRetries returns the configured retry budget.
func (d *RetryDispatcher) MaxRetries() int {
	return d.config.MaxRetries
}

// HasDeadLetter reports whether a dead-letter channel is configured.
func (d *RetryDispatcher) HasDeadLetter() bool {
	return d.deadLetter != nil
}

// SendRetryToQueue routes env after a failed attempt described by errMsg.
func (d *RetryDispatcher) SendRetryToQueue(ctx context.Context, env *models.RetryEnvelope, errMsg string) (RetryOutcome, error) {
	if env == nil {
		return RetryOutcomeNone, ErrNilEnvelope
	}

	if env.RetryCount < d.config.MaxRetries {
		next := env.WithRetryCount(env.RetryCount + 1)
		if err := d.retry.Send(ctx, next); err != nil {
			return RetryOutcomeNone, fmt.Errorf("requeue message: %w", err)
		}
		metrics.RecordRetryEnqueued()
		logging.Ctx(ctx).Debug().
			Int("retry_count", next.RetryCount).
			Int("max_retries", d.config.MaxRetries).
			Str("error", errMsg).
			Msg("Message requeued")
		return RetryOutcomeRequeued, nil
	}

	if d.deadLetter == nil {
		metrics.RecordDropped()
		logging.Ctx(ctx).Warn().
			Int("retry_count", env.RetryCount).
			Str("user", env.User).
			Str("error", errMsg).
			Msg("Retries exhausted and no dead-letter queue configured, dropping message")
		return RetryOutcomeDropped, nil
	}

	rec := &models.DeadLetterRecord{
		OriginalMessage: env,
		Error:           errMsg,
		FailedAttempts:  env.RetryCount,
		MessageID:       logging.CorrelationIDFromContext(ctx),
		FailedAt:        d.now().UTC(),
	}
	if err := d.deadLetter.Send(ctx, rec); err != nil {
		return RetryOutcomeNone, fmt.Errorf("dead-letter message: %w", err)
	}
	metrics.RecordDeadLettered(deadLetterReasonExhausted)
	logging.Ctx(ctx).Warn().
		Int("failed_attempts", rec.FailedAttempts).
		Str("error", errMsg).
		Msg("Message dead-lettered")
	return RetryOutcomeDeadLettered, nil
}

// SendUndecodable dead-letters a body that could not be parsed into an
// envelope. Such bodies cannot be re-enqueued, so they skip the retry budget.
func (d *RetryDispatcher) SendUndecodable(ctx context.Context, payload []byte, errMsg string) (RetryOutcome, error) {
	if d.deadLetter == nil {
		metrics.RecordDropped()
		logging.Ctx(ctx).Warn().
			Str("error", errMsg).
			Msg("Undecodable message and no dead-letter queue configured, dropping message")
		return RetryOutcomeDropped, nil
	}

	rec := &models.DeadLetterRecord{
		Error:          errMsg,
		FailedAttempts: 0,
		MessageID:      logging.CorrelationIDFromContext(ctx),
		FailedAt:       d.now().UTC(),
		RawPayload:     string(payload),
	}
	if err := d.deadLetter.Send(ctx, rec); err != nil {
		return RetryOutcomeNone, fmt.Errorf("dead-letter undecodable message: %w", err)
	}
	metrics.RecordDeadLettered(deadLetterReasonUndecodable)
	return RetryOutcomeDeadLettered, nil
}
