// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/tweetqueue/internal/database"
	"github.com/tomtom215/tweetqueue/internal/metrics"
	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/tweets"
)

// querier is satisfied by *pgxpool.Pool and *pgxpool.Conn.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FindByUsername looks a user up on the pool.
func (s *Store) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findByUsername(ctx, s.pool, username)
}

// CreateTweet inserts a tweet on the pool.
func (s *Store) CreateTweet(ctx context.Context, tweet *models.Tweet) (*models.Tweet, error) {
	return s.createTweet(ctx, s.pool, tweet)
}

func (s *Store) findByUsername(ctx context.Context, q querier, username string) (*models.User, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var id, name string
	err := q.QueryRow(ctx, `SELECT id, username FROM users WHERE username = $1`, username).Scan(&id, &name)
	if isNoRows(err) {
		metrics.RecordDBQuery("select", "users", time.Since(start), nil)
		return nil, tweets.NewError(tweets.KindUserNotFound, "User not found")
	}
	metrics.RecordDBQuery("select", "users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("postgres: find user %q: %w", username, err)
	}

	user, err := tweets.NewUser(id, name)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) createTweet(ctx context.Context, q querier, tweet *models.Tweet) (*models.Tweet, error) {
	if tweet == nil {
		return nil, fmt.Errorf("postgres: tweet is nil")
	}
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	stored := models.Tweet{User: tweet.User}
	err := q.QueryRow(ctx, `
		INSERT INTO tweets (user_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, content, created_at, updated_at`,
		tweet.User.ID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt,
	).Scan(&stored.ID, &stored.Content, &stored.CreatedAt, &stored.UpdatedAt)
	if isNoRows(err) {
		metrics.RecordDBQuery("insert", "tweets", time.Since(start), nil)
		return nil, nil
	}
	metrics.RecordDBQuery("insert", "tweets", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("postgres: insert tweet: %w", err)
	}
	stored.CreatedAt = stored.CreatedAt.UTC()
	stored.UpdatedAt = stored.UpdatedAt.UTC()
	return &stored, nil
}

// CreateUser validates and inserts a new user with a generated id.
// It returns database.ErrUserExists when the username is taken.
func (s *Store) CreateUser(ctx context.Context, username string) (*models.User, error) {
	user, err := tweets.NewUser(uuid.NewString(), username)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, username) VALUES ($1, $2)`, user.ID, user.Username)
	if isDuplicateKey(err) {
		metrics.RecordDBQuery("insert", "users", time.Since(start), nil)
		return nil, fmt.Errorf("%w: %s", database.ErrUserExists, username)
	}
	metrics.RecordDBQuery("insert", "users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("postgres: insert user: %w", err)
	}
	return &user, nil
}

// ListTweetsByUser returns a user's tweets, newest first.
func (s *Store) ListTweetsByUser(ctx context.Context, username string, limit int) ([]models.Tweet, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.content, t.created_at, t.updated_at, u.id, u.username
		FROM tweets t JOIN users u ON u.id = t.user_id
		WHERE u.username = $1
		ORDER BY t.created_at DESC, t.id
		LIMIT $2`, username, limit)
	metrics.RecordDBQuery("select", "tweets", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tweets: %w", err)
	}
	defer rows.Close()

	var out []models.Tweet
	for rows.Next() {
		var t models.Tweet
		if err := rows.Scan(&t.ID, &t.Content, &t.CreatedAt, &t.UpdatedAt, &t.User.ID, &t.User.Username); err != nil {
			return nil, fmt.Errorf("postgres: scan tweet: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
