// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
	"github.com/tomtom215/tweetqueue/internal/models"
)

// DeadLetterStore persists dead-letter records for later inspection.
type DeadLetterStore interface {
	SaveDeadLetter(ctx context.Context, record *models.DeadLetterRecord) error
}

// DeadLetterSink consumes the dead-letter topic and stores every record.
// Storage errors are returned to the router so its Retry middleware can
// try again; records that cannot be decoded are acked and logged.
type DeadLetterSink struct {
	store      DeadLetterStore
	serializer *Serializer
	observer   Observer

	persisted atomic.Int64
	rejected  atomic.Int64
}

// NewDeadLetterSink creates a sink writing into store.
func NewDeadLetterSink(store DeadLetterStore) (*DeadLetterSink, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: dead-letter store is required", ErrInvalidConfig)
	}
	return &DeadLetterSink{store: store, serializer: NewSerializer()}, nil
}

// WithObserver registers o to be told about every stored record.
func (s *DeadLetterSink) WithObserver(o Observer) *DeadLetterSink {
	s.observer = o
	return s
}

// Handle is a message.NoPublishHandlerFunc.
func (s *DeadLetterSink) Handle(msg *message.Message) error {
	ctx := logging.ContextWithCorrelationID(msg.Context(), msg.UUID)

	record, err := s.serializer.UnmarshalDeadLetter(msg.Payload)
	if err != nil {
		s.rejected.Add(1)
		logging.Ctx(ctx).Error().Err(err).Str("message_uuid", msg.UUID).Msg("Discarding undecodable dead-letter record")
		return nil
	}
	if record.ID == "" {
		record.ID = msg.UUID
	}

	err = s.store.SaveDeadLetter(ctx, record)
	metrics.RecordDeadLetterPersisted(err)
	if err != nil {
		return fmt.Errorf("save dead letter %s: %w", record.ID, err)
	}

	s.persisted.Add(1)
	logging.Ctx(ctx).Debug().
		Str("dead_letter_id", record.ID).
		Int("failed_attempts", record.FailedAttempts).
		Msg("Dead-letter record stored")
	if s.observer != nil {
		s.observer.DeadLetterStored(record)
	}
	return nil
}

// Register adds the sink as a consumer handler on router.
func (s *DeadLetterSink) Register(router *Router, topic string, subscriber message.Subscriber) {
	router.AddConsumerHandler("dead_letter_sink", topic, subscriber, s.Handle)
}

// Persisted returns the number of records stored so far.
func (s *DeadLetterSink) Persisted() int64 {
	return s.persisted.Load()
}

// Rejected returns the number of undecodable records discarded.
func (s *DeadLetterSink) Rejected() int64 {
	return s.rejected.Load()
}
