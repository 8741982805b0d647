// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import "errors"

// ErrNilPublisher is returned when attempting to create a publisher with nil input.
var ErrNilPublisher = errors.New("publisher cannot be nil")

// ErrNilSubscriber is returned when a consumer is built without a message source.
var ErrNilSubscriber = errors.New("subscriber cannot be nil")

// ErrNilEnvelope is returned when a retry is requested for a nil envelope.
var ErrNilEnvelope = errors.New("retry envelope cannot be nil")

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrSubscriberClosed is returned when subscribing on a closed subscriber.
var ErrSubscriberClosed = errors.New("subscriber is closed")

// ErrStreamNotFound is returned when the NATS stream doesn't exist.
var ErrStreamNotFound = errors.New("stream not found")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")
