// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

/*
Package models defines the data structures shared across the tweet ingestion pipeline.

Key Components:

  - User, Tweet: persisted domain records
  - CreateTweetRequest: the untrusted payload producers put on the queue
  - RetryEnvelope: a request plus its retry counter, as carried on the queue
  - DeadLetterRecord: terminal record for a lineage that exhausted its retries
  - DeadLetterFilter: selection for stored dead-letter listings
  - APIResponse, APIError: HTTP response wrappers

Queue Body Format:

	{"content": "hello", "user": "alice"}
	{"content": "hello", "user": "alice", "retryCount": 2}

The legacy key "userId" is accepted in place of "user". RetryEnvelope keeps
any other keys it finds so that re-enqueued messages keep their shape.

JSON encoding uses github.com/goccy/go-json throughout.
*/
package models
