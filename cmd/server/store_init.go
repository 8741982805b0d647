// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/tweetqueue/internal/api"
	"github.com/tomtom215/tweetqueue/internal/config"
	"github.com/tomtom215/tweetqueue/internal/database"
	"github.com/tomtom215/tweetqueue/internal/database/postgres"
	"github.com/tomtom215/tweetqueue/internal/eventprocessor"
	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/tweets"
)

// Store is everything the server needs from the tweet store: batch sessions
// for the consumer, dead-letter persistence for the sink and the read paths
// of the HTTP API.
type Store interface {
	tweets.Store
	api.Store
	eventprocessor.DeadLetterStore
	eventprocessor.Pinger
	Close() error
}

var (
	_ Store = (*database.DB)(nil)
	_ Store = (*postgres.Store)(nil)
)

// openStore opens the store selected by DATABASE_DRIVER and applies its
// schema migrations.
func openStore(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.URL, postgres.Config{
			MaxConns:     cfg.MaxConns,
			QueryTimeout: cfg.QueryTimeout,
		})
		if err != nil {
			return nil, err
		}
		version, err := store.SchemaVersion(ctx)
		if err != nil {
			logging.Warn().Err(err).Msg("Could not read postgres schema version")
		}
		logging.Info().
			Int32("max_conns", store.Pool().Config().MaxConns).
			Int("schema_version", version).
			Msg("PostgreSQL store initialized")
		return store, nil

	case config.DriverDuckDB, "":
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		logging.Info().
			Str("path", cfg.Path).
			Str("max_memory", cfg.MaxMemory).
			Msg("DuckDB store initialized")
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// closeStore logs final row counts where the store reports them and closes it.
func closeStore(store Store) {
	if db, ok := store.(*database.DB); ok {
		ctx, cancel := context.WithTimeout(context.Background(), storeCloseTimeout)
		counts, err := db.GetRecordCounts(ctx)
		cancel()
		if err == nil {
			logging.Info().
				Int64("users", counts.Users).
				Int64("tweets", counts.Tweets).
				Int64("dead_letters", counts.DeadLetters).
				Msg("Closing DuckDB store")
		}
	}
	if err := store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing store")
	}
}
