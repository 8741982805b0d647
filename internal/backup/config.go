// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package backup

import (
	"compress/gzip"
	"fmt"
	"time"

	"github.com/tomtom215/tweetqueue/internal/config"
)

// Config controls where archives go and how many are kept.
type Config struct {
	Dir              string
	Interval         time.Duration
	Retain           int
	CompressionLevel int
	// Timeout bounds a single export and archive.
	Timeout time.Duration
}

// DefaultConfig returns defaults matching the application config.
func DefaultConfig() Config {
	return Config{
		Dir:              "/data/backups",
		Interval:         24 * time.Hour,
		Retain:           7,
		CompressionLevel: gzip.DefaultCompression,
		Timeout:          30 * time.Minute,
	}
}

// FromAppConfig maps the application config onto backup settings.
func FromAppConfig(cfg *config.BackupConfig) Config {
	c := DefaultConfig()
	c.Dir = cfg.Dir
	c.Interval = cfg.Interval
	c.Retain = cfg.Retain
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("backup dir is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("backup interval must be positive")
	}
	if c.Retain < 1 {
		return fmt.Errorf("backup retain must be at least 1")
	}
	if c.CompressionLevel < gzip.HuffmanOnly || c.CompressionLevel > gzip.BestCompression {
		return fmt.Errorf("invalid compression level %d", c.CompressionLevel)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("backup timeout must be positive")
	}
	return nil
}
