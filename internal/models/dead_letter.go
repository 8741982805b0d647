// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package models

import "time"

// Dead-letter listing bounds.
const (
	DefaultDeadLetterLimit = 50
	MaxDeadLetterLimit     = 500
)

// DeadLetterFilter selects stored dead-letter records, newest first.
type DeadLetterFilter struct {
	Limit int
	// Since keeps records that failed at or after this instant.
	Since *time.Time
	// Kind keeps records whose error starts with "<Kind> - ", e.g. "UserNotFoundError".
	Kind string
}

// EffectiveLimit clamps Limit into [1, MaxDeadLetterLimit], defaulting to
// DefaultDeadLetterLimit.
func (f DeadLetterFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultDeadLetterLimit
	case f.Limit > MaxDeadLetterLimit:
		return MaxDeadLetterLimit
	default:
		return f.Limit
	}
}
