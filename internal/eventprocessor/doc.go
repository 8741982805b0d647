// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package eventprocessor moves create-tweet requests from a message queue
// into the tweet store, with bounded retries and a dead-letter topic.
//
// # Message Flow
//
//	┌─────────────┐  publish   ┌──────────────────────┐
//	│ HTTP API /  │ ─────────► │  tweets.create       │ ◄─────────┐
//	│ producers   │            │  (NATS/Kafka/memory) │           │ retryCount+1
//	└─────────────┘            └──────────┬───────────┘           │
//	                                      │                       │
//	                                      ▼                       │
//	                           ┌──────────────────────┐   failure │
//	                           │ BatchConsumer        │ ──────────┤
//	                           │  └ BatchProcessor    │           │ retries exhausted
//	                           └──────────┬───────────┘           ▼
//	                                      │            ┌──────────────────────┐
//	                                      ▼            │  tweets.create.dlq   │
//	                               tweet store         └──────────┬───────────┘
//	                                                              ▼
//	                                                       DeadLetterSink
//
// # Delivery Semantics
//
// Every message handed to ProcessBatch is acked exactly once, whether the
// tweet was created or not. Failures are never nacked back to the broker;
// instead RetryDispatcher publishes a copy carrying an incremented
// retryCount, or a DeadLetterRecord once MaxRetries is reached. The
// dispatch is awaited before the ack, so a message is only lost when the
// dispatch itself fails, which is logged and counted.
//
// # Transports
//
//   - NATS JetStream: Publisher and Subscriber, optionally backed by an
//     EmbeddedServer, with StreamInitializer provisioning the stream
//   - Kafka: KafkaPublisher and KafkaSubscriber (in-order commit on ack)
//   - In-memory: any Watermill gochannel pub/sub, used in tests and for
//     single-process runs
//
// All publishers satisfy message.Publisher and are wrapped in a
// TopicChannel. The publishers accept a gobreaker circuit breaker.
//
// # Batching
//
// BatchConsumer groups deliveries until BatchSize or FlushInterval. How
// large a batch gets depends on how many unacked deliveries the transport
// allows: SubscribersCount for NATS, MaxInFlight for Kafka.
package eventprocessor
