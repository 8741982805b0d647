// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package wal

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
)

// Target publishes encoded messages to one topic under a caller-chosen id.
// Satisfied by *eventprocessor.TopicChannel.
type Target interface {
	Topic() string
	Publish(ctx context.Context, id string, data []byte) error
}

// Publisher delivers a stored entry. The retry loop and startup recovery
// drive entries through it.
type Publisher interface {
	PublishEntry(ctx context.Context, entry *Entry) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, entry *Entry) error

func (f PublisherFunc) PublishEntry(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

// Outbox puts a BadgerWAL in front of a topic. Every message is written to
// disk before it is published, and the entry id doubles as the message id
// so a republished entry keeps the id the caller was given.
type Outbox struct {
	wal    *BadgerWAL
	target Target
}

// NewOutbox returns an outbox that delivers entries to target.
func NewOutbox(w *BadgerWAL, target Target) *Outbox {
	return &Outbox{wal: w, target: target}
}

// Topic is the topic entries are delivered to.
func (o *Outbox) Topic() string {
	return o.target.Topic()
}

// WAL exposes the underlying store for the retry and compaction loops.
func (o *Outbox) WAL() *BadgerWAL {
	return o.wal
}

// Enqueue persists payload and tries to publish it right away. A failed
// publish is not an error: the entry stays pending for the retry loop and
// its id is still returned.
func (o *Outbox) Enqueue(ctx context.Context, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	entry, err := o.wal.Write(ctx, o.target.Topic(), data)
	if err != nil {
		return "", fmt.Errorf("outbox write: %w", err)
	}

	if !o.wal.TryClaimEntry(entry.ID) {
		return entry.ID, nil
	}
	defer o.wal.ReleaseEntry(entry.ID)

	if err := o.deliver(ctx, entry); err != nil {
		logging.Warn().
			Err(err).
			Str("entry_id", entry.ID).
			Str("topic", entry.Topic).
			Msg("Outbox publish failed, entry left for retry")
	}
	return entry.ID, nil
}

// Send is Enqueue without the id.
func (o *Outbox) Send(ctx context.Context, payload interface{}) error {
	_, err := o.Enqueue(ctx, payload)
	return err
}

// PublishEntry republishes a stored entry under its own id, restoring the
// correlation id it was written with.
func (o *Outbox) PublishEntry(ctx context.Context, entry *Entry) error {
	if entry.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, entry.CorrelationID)
	}
	return o.target.Publish(ctx, entry.ID, entry.Payload)
}

// deliver publishes a claimed entry and records the outcome in the store.
func (o *Outbox) deliver(ctx context.Context, entry *Entry) error {
	return deliverEntry(ctx, o.wal, o, entry)
}

func deliverEntry(ctx context.Context, w *BadgerWAL, pub Publisher, entry *Entry) error {
	pubCtx, cancel := context.WithTimeout(ctx, w.config.PublishTimeout)
	err := pub.PublishEntry(pubCtx, entry)
	cancel()

	if err != nil {
		metrics.RecordOutboxDelivery("failed")
		if updateErr := w.UpdateAttempt(ctx, entry.ID, err.Error()); updateErr != nil {
			logging.Error().Err(updateErr).Str("entry_id", entry.ID).Msg("Outbox failed to record attempt")
		}
		return err
	}

	if err := w.Confirm(ctx, entry.ID); err != nil {
		return fmt.Errorf("confirm entry %s: %w", entry.ID, err)
	}
	metrics.RecordOutboxDelivery("confirmed")
	return nil
}

// entryAge reports how long ago an entry was written.
func (w *BadgerWAL) entryAge(entry *Entry) time.Duration {
	return w.now().Sub(entry.CreatedAt)
}
