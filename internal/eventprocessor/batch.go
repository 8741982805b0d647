// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/tweets"
)

// BatchResult counts what happened to the messages of one batch.
// Succeeded + Requeued + DeadLettered + Dropped + DispatchFailures == Received.
type BatchResult struct {
	Received         int
	Succeeded        int
	Requeued         int
	DeadLettered     int
	Dropped          int
	DispatchFailures int
}

// Failed returns the number of messages that did not produce a tweet.
func (r BatchResult) Failed() int {
	return r.Received - r.Succeeded
}

func (r *BatchResult) add(other BatchResult) {
	r.Received += other.Received
	r.Succeeded += other.Succeeded
	r.Requeued += other.Requeued
	r.DeadLettered += other.DeadLettered
	r.Dropped += other.Dropped
	r.DispatchFailures += other.DispatchFailures
}

type createFunc func(ctx context.Context, env *models.RetryEnvelope) (*models.Tweet, error)

// BatchProcessor runs create-tweet messages through the tweet repository and
// routes failures to the RetryDispatcher. Every message is acked exactly
// once, whatever happens to it.
type BatchProcessor struct {
	store      tweets.Store
	dispatcher *RetryDispatcher
	serializer *Serializer
	observer   Observer
	now        func() time.Time
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(store tweets.Store, dispatcher *RetryDispatcher) (*BatchProcessor, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: retry dispatcher is required", ErrInvalidConfig)
	}
	return &BatchProcessor{
		store:      store,
		dispatcher: dispatcher,
		serializer: NewSerializer(),
		now:        time.Now,
	}, nil
}

// WithClock replaces the clock used to stamp new tweets.
func (p *BatchProcessor) WithClock(now func() time.Time) *BatchProcessor {
	p.now = now
	return p
}

// WithObserver registers o to receive created and failed tweets.
func (p *BatchProcessor) WithObserver(o Observer) *BatchProcessor {
	p.observer = o
	return p
}

// ProcessBatch handles msgs sequentially in delivery order. It never fails:
// errors are classified, routed for retry and counted in the result.
//
// The batch runs detached from ctx cancellation so a shutdown does not
// abort it halfway.
func (p *BatchProcessor) ProcessBatch(ctx context.Context, msgs []*message.Message) BatchResult {
	var result BatchResult
	if len(msgs) == 0 {
		return result
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	defer func() {
		metrics.RecordBatch(len(msgs), time.Since(start))
		logging.Debug().
			Int("received", result.Received).
			Int("succeeded", result.Succeeded).
			Int("requeued", result.Requeued).
			Int("dead_lettered", result.DeadLettered).
			Int("dropped", result.Dropped).
			Int("dispatch_failures", result.DispatchFailures).
			Dur("duration", time.Since(start)).
			Msg("Batch processed")
	}()

	session, err := p.store.Acquire(ctx)
	if err != nil {
		logging.Error().Err(err).Int("batch_size", len(msgs)).Msg("Failed to acquire store session, failing batch")
		acquireErr := fmt.Errorf("acquire store session: %w", err)
		failing := func(context.Context, *models.RetryEnvelope) (*models.Tweet, error) {
			return nil, acquireErr
		}
		for _, msg := range msgs {
			result.add(p.processMessage(ctx, failing, msg))
		}
		return result
	}
	defer session.Release()

	repo := tweets.NewSessionRepository(session).WithClock(p.now)
	for _, msg := range msgs {
		result.add(p.processMessage(ctx, repo.CreateFromEnvelope, msg))
	}
	return result
}

// processMessage handles a single message and acks it on every path.
func (p *BatchProcessor) processMessage(ctx context.Context, create createFunc, msg *message.Message) (result BatchResult) {
	defer msg.Ack()

	result.Received = 1
	ctx = logging.ContextWithCorrelationID(ctx, msg.UUID)
	start := time.Now()

	env, err := p.serializer.UnmarshalEnvelope(msg.Payload)
	if err != nil {
		errMsg := tweets.Classify(err)
		logging.Ctx(ctx).Warn().Err(err).Msg("Undecodable message body")
		metrics.RecordTweetFailure(tweets.KindUnknown.Label(), time.Since(start))
		outcome, dispatchErr := p.dispatcher.SendUndecodable(ctx, msg.Payload, errMsg)
		p.recordOutcome(ctx, &result, outcome, dispatchErr)
		p.notifyFailure(msg.UUID, "", errMsg, 0, outcome)
		return result
	}

	tweet, errMsg, err := p.create(ctx, create, env)
	if err == nil {
		result.Succeeded = 1
		metrics.RecordTweetCreated(time.Since(start))
		logging.Ctx(ctx).Debug().
			Str("tweet_id", tweet.ID).
			Str("user", tweet.User.Username).
			Msg("Tweet created")
		if p.observer != nil {
			p.observer.TweetCreated(tweet)
		}
		return result
	}

	kind := tweets.KindOf(err)
	metrics.RecordTweetFailure(kind.Label(), time.Since(start))
	logging.Ctx(ctx).Warn().
		Str("kind", kind.String()).
		Int("retry_count", env.RetryCount).
		Str("error", errMsg).
		Msg("Tweet creation failed")

	outcome, dispatchErr := p.dispatcher.SendRetryToQueue(ctx, env, errMsg)
	p.recordOutcome(ctx, &result, outcome, dispatchErr)
	p.notifyFailure(msg.UUID, env.User, errMsg, env.RetryCount, outcome)
	return result
}

func (p *BatchProcessor) notifyFailure(messageID, user, errMsg string, retryCount int, outcome RetryOutcome) {
	if p.observer == nil {
		return
	}
	p.observer.TweetFailed(&models.TweetFailure{
		MessageID:  messageID,
		User:       user,
		Error:      errMsg,
		RetryCount: retryCount,
		Outcome:    outcome.String(),
		FailedAt:   p.now().UTC(),
	})
}

// create runs fn and converts a panic into an error. A panic value that is
// not an error classifies as "Unknown error".
func (p *BatchProcessor) create(ctx context.Context, fn createFunc, env *models.RetryEnvelope) (tweet *models.Tweet, errMsg string, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		tweet = nil
		if e, ok := r.(error); ok {
			err = e
			errMsg = tweets.Classify(e)
		} else {
			err = fmt.Errorf("panic: %v", r)
			errMsg = tweets.Classify(nil)
		}
		logging.Ctx(ctx).Error().Interface("panic", r).Msg("Recovered panic while creating tweet")
	}()

	tweet, err = fn(ctx, env)
	if err == nil && tweet == nil {
		err = tweets.NewError(tweets.KindCreateTweet, "Tweet not created")
	}
	if err != nil {
		return nil, tweets.Classify(err), err
	}
	return tweet, "", nil
}

func (p *BatchProcessor) recordOutcome(ctx context.Context, result *BatchResult, outcome RetryOutcome, err error) {
	if err != nil {
		result.DispatchFailures = 1
		metrics.RecordRetryDispatchFailure()
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to dispatch retry")
		return
	}
	switch outcome {
	case RetryOutcomeRequeued:
		result.Requeued = 1
	case RetryOutcomeDeadLettered:
		result.DeadLettered = 1
	case RetryOutcomeDropped:
		result.Dropped = 1
	}
}
