// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tweetqueue/config.yaml",
}

// ConfigPathEnvVar is the environment variable for specifying a custom config path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Queue: QueueConfig{
			Transport:          TransportNATS,
			Topic:              "tweets.create",
			DeadLetterTopic:    "tweets.create.dlq",
			MaxRetries:         3,
			BatchSize:          10,
			FlushInterval:      time.Second,
			ThrottlePerSecond:  0, // Unlimited
			PersistDeadLetters: true,
			SubscribersCount:   10,
			CloseTimeout:       30 * time.Second,
		},
		NATS: NATSConfig{
			URL:                 "nats://127.0.0.1:4222",
			Embedded:            true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           64 * 1024 * 1024,
			MaxStore:            1024 * 1024 * 1024,
			StreamName:          "TWEETS",
			StreamRetentionDays: 7,
			DurableName:         "tweet-writer",
			QueueGroup:          "tweet-writers",
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			GroupID:      "tweet-writers",
			BatchTimeout: 10 * time.Millisecond,
		},
		Database: DatabaseConfig{
			Driver:       DriverDuckDB,
			URL:          "",
			Path:         "/data/tweetqueue.duckdb",
			MaxMemory:    "512MB",
			Threads:      0,
			MaxConns:     10,
			QueryTimeout: 10 * time.Second,

			UserCacheSize: 10000,
			UserCacheTTL:  5 * time.Minute,
		},
		Outbox: OutboxConfig{
			Enabled:         false,
			Path:            "/data/outbox",
			SyncWrites:      true,
			RetryInterval:   30 * time.Second,
			MaxRetries:      100,
			RetryBackoff:    5 * time.Second,
			CompactInterval: time.Hour,
			EntryTTL:        168 * time.Hour,
		},
		Server: ServerConfig{
			Port:              8787,
			Host:              "0.0.0.0",
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Feed: FeedConfig{
			Enabled:    true,
			MaxClients: 100,
		},
		Auth: AuthConfig{
			Mode:          AuthModeNone,
			TokenTTL:      time.Hour,
			Issuer:        "tweetqueue",
			AdminUsername: "admin",
		},
		Audit: AuditConfig{
			MaxEvents: 10000,
			Retention: 720 * time.Hour,
		},
		Backup: BackupConfig{
			Enabled:  false,
			Dir:      "/data/backups",
			Interval: 24 * time.Hour,
			Retain:   7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence is ENV > File > Defaults. The result is validated before return.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// MAX_RETRIES -> queue.max_retries, DUCKDB_PATH -> database.path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"kafka.brokers",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while YAML lists arrive as slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Queue
	"queue_transport":         "queue.transport",
	"create_tweets_queue":     "queue.topic",
	"create_tweets_queue_dlq": "queue.dead_letter_topic",
	"max_retries":             "queue.max_retries",
	"batch_size":              "queue.batch_size",
	"flush_interval":          "queue.flush_interval",
	"throttle_per_second":     "queue.throttle_per_second",
	"persist_dead_letters":    "queue.persist_dead_letters",
	"queue_subscribers":       "queue.subscribers_count",
	"queue_close_timeout":     "queue.close_timeout",

	// NATS
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded",
	"nats_store_dir":      "nats.store_dir",
	"nats_max_memory":     "nats.max_memory",
	"nats_max_store":      "nats.max_store",
	"nats_stream_name":    "nats.stream_name",
	"nats_retention_days": "nats.stream_retention_days",
	"nats_durable_name":   "nats.durable_name",
	"nats_queue_group":    "nats.queue_group",

	// Kafka
	"kafka_brokers":       "kafka.brokers",
	"kafka_group_id":      "kafka.group_id",
	"kafka_batch_timeout": "kafka.batch_timeout",

	// Database
	"database_driver":        "database.driver",
	"database_url":           "database.url",
	"duckdb_path":            "database.path",
	"duckdb_max_memory":      "database.max_memory",
	"duckdb_threads":         "database.threads",
	"database_max_conns":     "database.max_conns",
	"database_query_timeout": "database.query_timeout",
	"user_cache_size":        "database.user_cache_size",
	"user_cache_ttl":         "database.user_cache_ttl",

	// Outbox
	"outbox_enabled":          "outbox.enabled",
	"outbox_path":             "outbox.path",
	"outbox_sync_writes":      "outbox.sync_writes",
	"outbox_retry_interval":   "outbox.retry_interval",
	"outbox_max_retries":      "outbox.max_retries",
	"outbox_retry_backoff":    "outbox.retry_backoff",
	"outbox_compact_interval": "outbox.compact_interval",
	"outbox_entry_ttl":        "outbox.entry_ttl",

	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	// Feed
	"feed_enabled":     "feed.enabled",
	"feed_max_clients": "feed.max_clients",

	// Auth
	"auth_mode":            "auth.mode",
	"jwt_secret":           "auth.jwt_secret",
	"jwt_token_ttl":        "auth.token_ttl",
	"jwt_issuer":           "auth.issuer",
	"admin_username":       "auth.admin_username",
	"admin_password_hash":  "auth.admin_password_hash",
	"viewer_username":      "auth.viewer_username",
	"viewer_password_hash": "auth.viewer_password_hash",
	"authz_policy_path":    "auth.policy_path",

	// Audit
	"audit_max_events": "audit.max_events",
	"audit_retention":  "audit.retention",

	// Backup
	"backup_enabled":  "backup.enabled",
	"backup_dir":      "backup.dir",
	"backup_interval": "backup.interval",
	"backup_retain":   "backup.retain",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unknown variables return "" and are ignored by the provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
