// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package postgres provides the PostgreSQL tweet store, selected with
// DATABASE_DRIVER=postgres and DATABASE_URL.
//
// Store satisfies the same contracts as the DuckDB store: tweets.Store for
// batch sessions (each Session pins one *pgxpool.Conn), the dead-letter sink's
// SaveDeadLetter, and the user and listing calls used by the HTTP API.
//
// Schema migrations are embedded SQL files named <version>_<name>.sql and are
// applied by New inside one transaction each.
package postgres
