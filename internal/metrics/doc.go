// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed at /metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Pipeline Metrics:
  - tweets_created_total: Tweets persisted (counter)
  - tweet_failures_total: Failed creations (counter)
    Labels: kind (tweet_validation, user_validation, user_not_found, create_tweet, unknown)
  - tweet_retries_enqueued_total: Re-enqueued messages (counter)
  - tweet_messages_dead_lettered_total: Dead-lettered messages (counter)
    Labels: reason (exhausted, undecodable)
  - tweet_messages_dropped_total: Exhausted messages with no dead-letter topic (counter)
  - tweet_retry_dispatch_failures_total: Failed retry/dead-letter sends (counter)
  - tweet_batch_size, tweet_batch_duration_seconds: Batch shape (histograms)

Queue Metrics:
  - queue_messages_published_total, queue_publish_errors_total (counter)
    Labels: topic
  - queue_messages_consumed_total (counter)
    Labels: topic

Database Metrics:
  - db_query_duration_seconds (histogram)
    Labels: operation, table
  - db_query_errors_total (counter)
    Labels: operation, table, error_type
  - db_sessions_active (gauge)

API and Circuit Breaker Metrics:
  - api_requests_total, api_request_duration_seconds, api_active_requests
  - circuit_breaker_state (0=closed, 1=half-open, 2=open)
  - circuit_breaker_state_transitions_total

# Usage

	start := time.Now()
	err := row.Scan(&id)
	metrics.RecordDBQuery("select", "users", time.Since(start), err)
*/
package metrics
