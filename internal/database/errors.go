// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/tweetqueue/internal/logging"
)

var (
	// ErrUnsupportedDriver is returned for a database driver this package cannot open.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrUserExists is returned by CreateUser when the username is taken.
	ErrUserExists = errors.New("user already exists")
)

// closeWithLog closes c and logs a failure as a warning.
func closeWithLog(c io.Closer, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.Warn().Str("resource", what).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly is for error paths where the original error is the one
// worth returning.
func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
