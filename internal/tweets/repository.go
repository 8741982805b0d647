// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package tweets

import (
	"context"
	"time"

	"github.com/tomtom215/tweetqueue/internal/models"
)

// Repository turns a create-tweet request into a stored tweet.
type Repository struct {
	tweets TweetCreator
	users  UserFinder
	now    func() time.Time
}

// NewRepository creates a repository over the given collaborators.
func NewRepository(tweets TweetCreator, users UserFinder) *Repository {
	return &Repository{
		tweets: tweets,
		users:  users,
		now:    time.Now,
	}
}

// NewSessionRepository creates a repository bound to a single store session.
func NewSessionRepository(s Session) *Repository {
	return NewRepository(s, s)
}

// WithClock replaces the clock used to stamp new tweets.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// CreateFromEnvelope is CreateTweet for a decoded queue message.
func (r *Repository) CreateFromEnvelope(ctx context.Context, env *models.RetryEnvelope) (*models.Tweet, error) {
	req, err := RequestFromEnvelope(env)
	if err != nil {
		return nil, err
	}
	return r.CreateTweet(ctx, req)
}

// CreateTweet validates the request, resolves its user, validates the tweet
// and stores it. Nothing is written unless every validation step passes.
func (r *Repository) CreateTweet(ctx context.Context, req models.CreateTweetRequest) (*models.Tweet, error) {
	req, err := NewCreateTweetRequest(req)
	if err != nil {
		return nil, err
	}

	user, err := r.users.FindByUsername(ctx, req.User)
	if err != nil {
		return nil, err
	}

	draft, err := NewTweet(req.Content, user, r.now())
	if err != nil {
		return nil, err
	}

	entity := draft.ToEntity()
	created, err := r.tweets.CreateTweet(ctx, &entity)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, NewError(KindCreateTweet, "Tweet not created")
	}

	return created, nil
}
