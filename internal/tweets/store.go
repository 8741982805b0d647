// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package tweets

import (
	"context"

	"github.com/tomtom215/tweetqueue/internal/models"
)

// UserFinder resolves users by username.
type UserFinder interface {
	// FindByUsername returns a KindUserNotFound error when no user matches.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// TweetCreator persists tweets.
type TweetCreator interface {
	// CreateTweet inserts the tweet and returns the stored row.
	// It returns (nil, nil) when the insert yields no row.
	CreateTweet(ctx context.Context, tweet *models.Tweet) (*models.Tweet, error)
}

// Session is a store handle pinned to one connection for the length of a batch.
type Session interface {
	UserFinder
	TweetCreator

	// Release returns the connection to the pool. It is safe to call more than once.
	Release()
}

// Store hands out batch-scoped sessions.
type Store interface {
	Acquire(ctx context.Context) (Session, error)
}
