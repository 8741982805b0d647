// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/tweetqueue/internal/logging"
)

// Queue limits
const (
	maxBatchSize   = 10000
	maxSubscribers = 64
	maxRetries     = 100
	minFlush       = 10 * time.Millisecond
	maxFlush       = time.Hour
)

// NATS limits
const (
	natsMinMemory    = 16 * 1024 * 1024 // 16MB
	natsMinStore     = 64 * 1024 * 1024 // 64MB
	natsMaxRetention = 365
)

const minJWTSecret = 32

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateQueue,
		c.validateNATS,
		c.validateKafka,
		c.validateDatabase,
		c.validateOutbox,
		c.validateServer,
		c.validateFeed,
		c.validateAuth,
		c.validateAudit,
		c.validateBackup,
		c.validateLogging,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateQueue() error {
	q := c.Queue
	switch q.Transport {
	case TransportNATS, TransportKafka, TransportMemory:
	default:
		return fmt.Errorf("QUEUE_TRANSPORT must be one of: nats, kafka, memory (got %q)", q.Transport)
	}

	if strings.TrimSpace(q.Topic) == "" {
		return fmt.Errorf("CREATE_TWEETS_QUEUE is required")
	}
	// An empty dead-letter topic disables dead-lettering.
	if q.Topic == q.DeadLetterTopic {
		return fmt.Errorf("CREATE_TWEETS_QUEUE_DLQ must differ from CREATE_TWEETS_QUEUE")
	}
	if q.MaxRetries < 0 || q.MaxRetries > maxRetries {
		return fmt.Errorf("MAX_RETRIES must be between 0 and %d", maxRetries)
	}
	if q.BatchSize < 1 || q.BatchSize > maxBatchSize {
		return fmt.Errorf("BATCH_SIZE must be between 1 and %d", maxBatchSize)
	}
	if q.FlushInterval < minFlush || q.FlushInterval > maxFlush {
		return fmt.Errorf("FLUSH_INTERVAL must be between 10ms and 1h")
	}
	if q.ThrottlePerSecond < 0 {
		return fmt.Errorf("THROTTLE_PER_SECOND must not be negative")
	}
	if q.SubscribersCount < 1 || q.SubscribersCount > maxSubscribers {
		return fmt.Errorf("QUEUE_SUBSCRIBERS must be between 1 and %d", maxSubscribers)
	}
	return nil
}

// validateNATS validates NATS configuration (only for the nats transport)
func (c *Config) validateNATS() error {
	if c.Queue.Transport != TransportNATS {
		return nil
	}

	n := c.NATS
	if !n.Embedded {
		if err := validateNATSURL(n.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	} else {
		if n.MaxMemory < natsMinMemory {
			return fmt.Errorf("NATS_MAX_MEMORY must be at least 16MB (16777216 bytes)")
		}
		if n.MaxStore < natsMinStore {
			return fmt.Errorf("NATS_MAX_STORE must be at least 64MB (67108864 bytes)")
		}
	}

	if n.StreamName == "" {
		return fmt.Errorf("NATS_STREAM_NAME is required")
	}
	if n.StreamRetentionDays < 1 || n.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and %d", natsMaxRetention)
	}
	if n.DurableName == "" {
		return fmt.Errorf("NATS_DURABLE_NAME is required")
	}
	return nil
}

func validateNATSURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is missing")
	}
	return nil
}

func (c *Config) validateKafka() error {
	if c.Queue.Transport != TransportKafka {
		return nil
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when QUEUE_TRANSPORT=kafka")
	}
	for _, b := range c.Kafka.Brokers {
		if !strings.Contains(b, ":") {
			return fmt.Errorf("KAFKA_BROKERS entry %q must be host:port", b)
		}
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("KAFKA_GROUP_ID is required when QUEUE_TRANSPORT=kafka")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	d := c.Database
	switch d.Driver {
	case DriverDuckDB:
		if d.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when DATABASE_DRIVER=duckdb")
		}
		if d.Threads < 0 {
			return fmt.Errorf("DUCKDB_THREADS must not be negative")
		}
	case DriverPostgres:
		if d.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
		}
		if d.MaxConns < 1 {
			return fmt.Errorf("DATABASE_MAX_CONNS must be at least 1")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of: duckdb, postgres (got %q)", d.Driver)
	}
	if d.QueryTimeout <= 0 {
		return fmt.Errorf("DATABASE_QUERY_TIMEOUT must be positive")
	}
	if d.UserCacheSize < 0 {
		return fmt.Errorf("USER_CACHE_SIZE must not be negative")
	}
	if d.UserCacheSize > 0 && d.UserCacheTTL <= 0 {
		return fmt.Errorf("USER_CACHE_TTL must be positive when the user cache is enabled")
	}
	return nil
}

func (c *Config) validateOutbox() error {
	o := c.Outbox
	if !o.Enabled {
		return nil
	}
	if o.Path == "" {
		return fmt.Errorf("OUTBOX_PATH is required when OUTBOX_ENABLED=true")
	}
	if o.RetryInterval < time.Second {
		return fmt.Errorf("OUTBOX_RETRY_INTERVAL must be at least 1s")
	}
	if o.MaxRetries < 1 {
		return fmt.Errorf("OUTBOX_MAX_RETRIES must be at least 1")
	}
	if o.RetryBackoff <= 0 {
		return fmt.Errorf("OUTBOX_RETRY_BACKOFF must be positive")
	}
	if o.CompactInterval < time.Minute {
		return fmt.Errorf("OUTBOX_COMPACT_INTERVAL must be at least 1m")
	}
	if o.EntryTTL < time.Hour {
		return fmt.Errorf("OUTBOX_ENTRY_TTL must be at least 1h")
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.MaxClients < 0 {
		return fmt.Errorf("FEED_MAX_CLIENTS must not be negative")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if c.Audit.MaxEvents < 1 {
		return fmt.Errorf("AUDIT_MAX_EVENTS must be at least 1")
	}
	if c.Audit.Retention < time.Hour {
		return fmt.Errorf("AUDIT_RETENTION must be at least 1h")
	}
	return nil
}

func (c *Config) validateBackup() error {
	b := c.Backup
	if !b.Enabled {
		return nil
	}
	if c.Database.Driver != DriverDuckDB {
		return fmt.Errorf("BACKUP_ENABLED requires DATABASE_DRIVER=duckdb")
	}
	if b.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when BACKUP_ENABLED=true")
	}
	if b.Interval < time.Minute {
		return fmt.Errorf("BACKUP_INTERVAL must be at least 1m")
	}
	if b.Retain < 1 {
		return fmt.Errorf("BACKUP_RETAIN must be at least 1")
	}
	return nil
}

func (c *Config) validateAuth() error {
	a := c.Auth
	switch a.Mode {
	case AuthModeNone:
		return nil
	case AuthModeJWT:
	default:
		return fmt.Errorf("AUTH_MODE must be none or jwt (got %q)", a.Mode)
	}
	if len(a.JWTSecret) < minJWTSecret {
		return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecret)
	}
	if a.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive")
	}
	if a.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE=jwt")
	}
	if !strings.HasPrefix(a.AdminPasswordHash, "$2") {
		return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash when AUTH_MODE=jwt")
	}
	if a.ViewerUsername == "" {
		return nil
	}
	if a.ViewerUsername == a.AdminUsername {
		return fmt.Errorf("VIEWER_USERNAME must differ from ADMIN_USERNAME")
	}
	if !strings.HasPrefix(a.ViewerPasswordHash, "$2") {
		return fmt.Errorf("VIEWER_PASSWORD_HASH must be a bcrypt hash when VIEWER_USERNAME is set")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console (got %q)", c.Logging.Format)
	}
}
