// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package config

import (
	"fmt"
	"time"
)

// Transport names accepted by QueueConfig.Transport.
const (
	TransportNATS   = "nats"
	TransportKafka  = "kafka"
	TransportMemory = "memory"
)

// Auth modes accepted by AuthConfig.Mode.
const (
	AuthModeNone = "none"
	AuthModeJWT  = "jwt"
)

// Database drivers accepted by DatabaseConfig.Driver.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML file (config.yaml, or CONFIG_PATH)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Queue    QueueConfig    `koanf:"queue"`
	NATS     NATSConfig     `koanf:"nats"`
	Kafka    KafkaConfig    `koanf:"kafka"`
	Database DatabaseConfig `koanf:"database"`
	Outbox   OutboxConfig   `koanf:"outbox"`
	Server   ServerConfig   `koanf:"server"`
	Feed     FeedConfig     `koanf:"feed"`
	Auth     AuthConfig     `koanf:"auth"`
	Audit    AuditConfig    `koanf:"audit"`
	Backup   BackupConfig   `koanf:"backup"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// QueueConfig controls the create-tweets pipeline.
//
// Environment Variables:
//   - QUEUE_TRANSPORT: nats, kafka or memory (default: nats)
//   - CREATE_TWEETS_QUEUE: main topic (default: tweets.create)
//   - CREATE_TWEETS_QUEUE_DLQ: dead-letter topic, empty disables (default: tweets.create.dlq)
//   - MAX_RETRIES: retries before a message is dead-lettered (default: 3)
//   - BATCH_SIZE: maximum messages per batch (default: 10)
//   - FLUSH_INTERVAL: flush deadline for partial batches (default: 1s)
//   - THROTTLE_PER_SECOND: consumer rate limit, 0 = unlimited
//   - PERSIST_DEAD_LETTERS: store DLQ records in the database (default: true)
type QueueConfig struct {
	Transport          string        `koanf:"transport"`
	Topic              string        `koanf:"topic"`
	DeadLetterTopic    string        `koanf:"dead_letter_topic"`
	MaxRetries         int           `koanf:"max_retries"`
	BatchSize          int           `koanf:"batch_size"`
	FlushInterval      time.Duration `koanf:"flush_interval"`
	ThrottlePerSecond  int           `koanf:"throttle_per_second"`
	PersistDeadLetters bool          `koanf:"persist_dead_letters"`
	SubscribersCount   int           `koanf:"subscribers_count"`
	CloseTimeout       time.Duration `koanf:"close_timeout"`
}

// NATSConfig holds NATS JetStream settings.
type NATSConfig struct {
	// URL of the NATS server. Ignored when Embedded is set.
	URL string `koanf:"url"`

	// Embedded starts an in-process NATS server with JetStream.
	Embedded bool `koanf:"embedded"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	MaxMemory           int64  `koanf:"max_memory"`
	MaxStore            int64  `koanf:"max_store"`
	StreamName          string `koanf:"stream_name"`
	StreamRetentionDays int    `koanf:"stream_retention_days"`
	DurableName         string `koanf:"durable_name"`
	QueueGroup          string `koanf:"queue_group"`
}

// KafkaConfig holds Kafka settings used when Queue.Transport is "kafka".
type KafkaConfig struct {
	Brokers      []string      `koanf:"brokers"`
	GroupID      string        `koanf:"group_id"`
	BatchTimeout time.Duration `koanf:"batch_timeout"`
}

// DatabaseConfig selects and configures the tweet store.
type DatabaseConfig struct {
	Driver       string        `koanf:"driver"`
	URL          string        `koanf:"url"`  // Postgres connection string
	Path         string        `koanf:"path"` // DuckDB file path, ":memory:" allowed
	MaxMemory    string        `koanf:"max_memory"`
	Threads      int           `koanf:"threads"` // 0 = DuckDB default
	MaxConns     int32         `koanf:"max_conns"`
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// UserCacheSize bounds the username lookup cache used by the consumer.
	// Zero disables caching.
	UserCacheSize int           `koanf:"user_cache_size"`
	UserCacheTTL  time.Duration `koanf:"user_cache_ttl"`
}

// OutboxConfig controls the BadgerDB outbox that makes API enqueues durable
// across transport outages. Entries are written before publishing and
// republished by a background loop until the transport accepts them.
//
// Environment Variables:
//   - OUTBOX_ENABLED: route API enqueues through the outbox (default: false)
//   - OUTBOX_PATH: BadgerDB directory (default: /data/outbox)
//   - OUTBOX_SYNC_WRITES: fsync every write (default: true)
//   - OUTBOX_RETRY_INTERVAL: how often pending entries are retried (default: 30s)
//   - OUTBOX_MAX_RETRIES: attempts before an entry is dropped (default: 100)
//   - OUTBOX_RETRY_BACKOFF: base for exponential backoff (default: 5s)
//   - OUTBOX_COMPACT_INTERVAL: confirmed-entry cleanup period (default: 1h)
//   - OUTBOX_ENTRY_TTL: age after which pending entries expire (default: 168h)
type OutboxConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Path            string        `koanf:"path"`
	SyncWrites      bool          `koanf:"sync_writes"`
	RetryInterval   time.Duration `koanf:"retry_interval"`
	MaxRetries      int           `koanf:"max_retries"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	CompactInterval time.Duration `koanf:"compact_interval"`
	EntryTTL        time.Duration `koanf:"entry_ttl"`
}

// FeedConfig controls the live WebSocket feed of pipeline events.
//
// Environment Variables:
//   - FEED_ENABLED: serve /api/v1/stream (default: true)
//   - FEED_MAX_CLIENTS: concurrent connections, 0 = unlimited (default: 100)
type FeedConfig struct {
	Enabled    bool `koanf:"enabled"`
	MaxClients int  `koanf:"max_clients"`
}

// AuthConfig protects the administrative endpoints.
//
// Environment Variables:
//   - AUTH_MODE: none or jwt (default: none)
//   - JWT_SECRET: HMAC signing key, at least 32 bytes (required for jwt)
//   - JWT_TOKEN_TTL: lifetime of issued tokens (default: 1h)
//   - ADMIN_USERNAME: login name for the admin account (default: admin)
//   - ADMIN_PASSWORD_HASH: bcrypt hash of the admin password (required for jwt)
//   - VIEWER_USERNAME: optional read-only account (default: none)
//   - VIEWER_PASSWORD_HASH: bcrypt hash of the viewer password
//   - AUTHZ_POLICY_PATH: Casbin policy CSV replacing the built-in policy
type AuthConfig struct {
	Mode              string        `koanf:"mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	Issuer            string        `koanf:"issuer"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPasswordHash string        `koanf:"admin_password_hash"`

	ViewerUsername     string `koanf:"viewer_username"`
	ViewerPasswordHash string `koanf:"viewer_password_hash"`
	PolicyPath         string `koanf:"policy_path"`
}

// Enabled reports whether admin routes require a token.
func (a AuthConfig) Enabled() bool {
	return a.Mode == AuthModeJWT
}

// AuditConfig bounds the in-memory trail of admin actions. The trail is
// only recorded when AUTH_MODE=jwt.
//
// Environment Variables:
//   - AUDIT_MAX_EVENTS: events kept before the oldest are evicted (default: 10000)
//   - AUDIT_RETENTION: age after which events are pruned (default: 720h)
type AuditConfig struct {
	MaxEvents int           `koanf:"max_events"`
	Retention time.Duration `koanf:"retention"`
}

// BackupConfig controls scheduled snapshots of the DuckDB tweet store.
//
// Environment Variables:
//   - BACKUP_ENABLED: take scheduled backups (default: false, duckdb only)
//   - BACKUP_DIR: archive directory (default: /data/backups)
//   - BACKUP_INTERVAL: time between scheduled backups (default: 24h)
//   - BACKUP_RETAIN: archives kept, oldest removed first (default: 7)
type BackupConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Dir      string        `koanf:"dir"`
	Interval time.Duration `koanf:"interval"`
	Retain   int           `koanf:"retain"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port              int           `koanf:"port"`
	Host              string        `koanf:"host"`
	Timeout           time.Duration `koanf:"timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
