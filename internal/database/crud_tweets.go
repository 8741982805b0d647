// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/tweets"
)

// queryer is satisfied by both *sql.DB and a pinned *sql.Conn.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// FindByUsername looks a user up on the pool. Batches use Session.FindByUsername.
func (db *DB) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return findByUsername(ctx, db, db.conn, username)
}

// CreateTweet inserts a tweet on the pool. Batches use Session.CreateTweet.
func (db *DB) CreateTweet(ctx context.Context, tweet *models.Tweet) (*models.Tweet, error) {
	return createTweet(ctx, db, db.conn, tweet)
}

func findByUsername(ctx context.Context, db *DB, q queryer, username string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var id, name string
	err := q.QueryRowContext(ctx, `SELECT id, username FROM users WHERE username = ?`, username).Scan(&id, &name)
	if errors.Is(err, sql.ErrNoRows) {
		observe("select", "users", start, nil)
		return nil, tweets.NewError(tweets.KindUserNotFound, "User not found")
	}
	observe("select", "users", start, err)
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}

	user, err := tweets.NewUser(id, name)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func createTweet(ctx context.Context, db *DB, q queryer, tweet *models.Tweet) (*models.Tweet, error) {
	if tweet == nil {
		return nil, fmt.Errorf("tweet is nil")
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	stored := models.Tweet{User: tweet.User}
	err := q.QueryRowContext(ctx, `
		INSERT INTO tweets (id, user_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, content, created_at, updated_at`,
		uuid.NewString(), tweet.User.ID, tweet.Content, tweet.CreatedAt.UTC(), tweet.UpdatedAt.UTC(),
	).Scan(&stored.ID, &stored.Content, &stored.CreatedAt, &stored.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		observe("insert", "tweets", start, nil)
		return nil, nil
	}
	observe("insert", "tweets", start, err)
	if err != nil {
		return nil, fmt.Errorf("insert tweet: %w", err)
	}
	return &stored, nil
}

// CreateUser validates and inserts a new user with a generated id.
// It returns ErrUserExists when the username is taken.
func (db *DB) CreateUser(ctx context.Context, username string) (*models.User, error) {
	user, err := tweets.NewUser(uuid.NewString(), username)
	if err != nil {
		return nil, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)`,
		user.ID, user.Username, db.now().UTC())
	if isConstraintViolation(err) {
		observe("insert", "users", start, nil)
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	observe("insert", "users", start, err)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, nil
}

// ListTweetsByUser returns a user's tweets, newest first.
func (db *DB) ListTweetsByUser(ctx context.Context, username string, limit int) ([]models.Tweet, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT t.id, t.content, t.created_at, t.updated_at, u.id, u.username
		FROM tweets t JOIN users u ON u.id = t.user_id
		WHERE u.username = ?
		ORDER BY t.created_at DESC, t.id
		LIMIT ?`, username, limit)
	observe("select", "tweets", start, err)
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", err)
	}
	defer rows.Close()

	var out []models.Tweet
	for rows.Next() {
		var t models.Tweet
		if err := rows.Scan(&t.ID, &t.Content, &t.CreatedAt, &t.UpdatedAt, &t.User.ID, &t.User.Username); err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
