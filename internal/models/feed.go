// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package models

import "time"

// TweetFailure describes one create-tweet message that did not produce a
// tweet, and where the pipeline sent it.
type TweetFailure struct {
	MessageID  string    `json:"messageId"`
	User       string    `json:"user,omitempty"`
	Error      string    `json:"error"`
	RetryCount int       `json:"retryCount"`
	Outcome    string    `json:"outcome"`
	FailedAt   time.Time `json:"failedAt"`
}
