// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import "github.com/tomtom215/tweetqueue/internal/models"

// Observer is told about per-message outcomes as they happen. Methods run on
// the consumer goroutine and must return quickly.
//
// Satisfied by *websocket.Hub.
type Observer interface {
	TweetCreated(tweet *models.Tweet)
	TweetFailed(failure *models.TweetFailure)
	DeadLetterStored(record *models.DeadLetterRecord)
}
