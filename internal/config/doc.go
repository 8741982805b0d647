// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

/*
Package config provides centralized configuration management for Tweetqueue.

Configuration is layered with Koanf v2: struct defaults, then an optional YAML
file, then environment variables. The merged result is validated before it is
returned.

# Configuration Structure

  - QueueConfig: transport selection, topics, retry budget and batching
  - NATSConfig: embedded or external NATS JetStream
  - KafkaConfig: brokers and consumer group
  - DatabaseConfig: DuckDB or Postgres store
  - ServerConfig: HTTP listener, CORS and rate limiting
  - LoggingConfig: zerolog level and format

# Environment Variables

Queue:
  - QUEUE_TRANSPORT: nats, kafka or memory (default: nats)
  - CREATE_TWEETS_QUEUE: main topic (default: tweets.create)
  - CREATE_TWEETS_QUEUE_DLQ: dead-letter topic (default: tweets.create.dlq)
  - MAX_RETRIES: retry budget per message (default: 3)
  - BATCH_SIZE, FLUSH_INTERVAL, THROTTLE_PER_SECOND, PERSIST_DEAD_LETTERS

Messaging:
  - NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR, NATS_STREAM_NAME
  - KAFKA_BROKERS (comma-separated), KAFKA_GROUP_ID

Storage:
  - DATABASE_DRIVER: duckdb or postgres (default: duckdb)
  - DATABASE_URL: Postgres connection string
  - DUCKDB_PATH: DuckDB file (default: /data/tweetqueue.duckdb)

Server and logging:
  - HTTP_HOST, HTTP_PORT (default: 8787), CORS_ORIGINS
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	dispatcher := eventprocessor.NewRetryDispatcher(pub, cfg.Queue.MaxRetries, ...)

# Config File

Set CONFIG_PATH or place config.yaml in the working directory:

	queue:
	  transport: kafka
	  max_retries: 5
	kafka:
	  brokers: [kafka-1:9092, kafka-2:9092]
*/
package config
