// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package wal

import (
	"time"

	"github.com/tomtom215/tweetqueue/internal/config"
)

// Config tunes the BadgerDB outbox and its background loops.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database off disk. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	RetryInterval time.Duration
	RetryBackoff  time.Duration

	// MaxRetries is the number of failed publishes after which a pending
	// entry is dropped.
	MaxRetries int

	CompactInterval time.Duration

	// EntryTTL bounds how long an unpublished entry is retried.
	EntryTTL time.Duration

	MemTableSize     int64
	ValueLogFileSize int64
	NumCompactors    int

	// GCRatio is passed to RunValueLogGC.
	GCRatio float64

	CloseTimeout time.Duration

	// PublishTimeout bounds each publish attempt.
	PublishTimeout time.Duration
}

// DefaultConfig favours durability over throughput.
func DefaultConfig() Config {
	return Config{
		Path:             "/data/outbox",
		SyncWrites:       true,
		RetryInterval:    30 * time.Second,
		RetryBackoff:     5 * time.Second,
		MaxRetries:       100,
		CompactInterval:  time.Hour,
		EntryTTL:         168 * time.Hour,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		GCRatio:          0.5,
		CloseTimeout:     30 * time.Second,
		PublishTimeout:   10 * time.Second,
	}
}

// FromAppConfig overlays the outbox section of the application config on
// DefaultConfig.
func FromAppConfig(cfg *config.OutboxConfig) Config {
	c := DefaultConfig()
	c.Path = cfg.Path
	c.SyncWrites = cfg.SyncWrites
	if cfg.RetryInterval > 0 {
		c.RetryInterval = cfg.RetryInterval
	}
	if cfg.RetryBackoff > 0 {
		c.RetryBackoff = cfg.RetryBackoff
	}
	if cfg.MaxRetries > 0 {
		c.MaxRetries = cfg.MaxRetries
	}
	if cfg.CompactInterval > 0 {
		c.CompactInterval = cfg.CompactInterval
	}
	if cfg.EntryTTL > 0 {
		c.EntryTTL = cfg.EntryTTL
	}
	return c
}

// Validate checks the settings Open depends on.
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return &ConfigError{Field: "Path", Message: "outbox path is required"}
	}
	if c.RetryInterval <= 0 {
		return &ConfigError{Field: "RetryInterval", Message: "must be positive"}
	}
	if c.RetryBackoff <= 0 {
		return &ConfigError{Field: "RetryBackoff", Message: "must be positive"}
	}
	if c.MaxRetries < 1 {
		return &ConfigError{Field: "MaxRetries", Message: "must be at least 1"}
	}
	if c.CompactInterval <= 0 {
		return &ConfigError{Field: "CompactInterval", Message: "must be positive"}
	}
	if c.EntryTTL <= 0 {
		return &ConfigError{Field: "EntryTTL", Message: "must be positive"}
	}
	if c.MemTableSize < 1024*1024 {
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 1MB"}
	}
	if c.ValueLogFileSize < 1024*1024 {
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	}
	if c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2 (BadgerDB requirement)"}
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return &ConfigError{Field: "GCRatio", Message: "must be between 0 and 1"}
	}
	return nil
}

// ConfigError reports an invalid outbox setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "outbox config error: " + e.Field + ": " + e.Message
}
