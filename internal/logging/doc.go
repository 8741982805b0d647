// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package logging provides centralized zerolog-based logging for Tweetqueue.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Msg("Server starting")
//	logging.Error().Err(err).Msg("Operation failed")
//
//	// With context (correlation ID)
//	logging.Ctx(ctx).Info().Str("user", username).Msg("Tweet stored")
//
// # Configuration
//
// Level and format come from the logging section of the application
// config (LOG_LEVEL, LOG_FORMAT, LOG_CALLER).
//
// # slog Bridge
//
// SlogHandler routes log/slog records into zerolog. The supervisor tree
// (sutureslog) and watermill (watermill.NewSlogLogger) both log through it.
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
package logging
