// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package models

import "time"

// User is a resolved account. ID is the identity; Username is the natural lookup key.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Tweet is a persisted tweet record. ID is assigned at insert time.
type Tweet struct {
	ID        string    `json:"id,omitempty"`
	User      User      `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateTweetRequest is the minimal externally supplied payload.
// User carries a username, not a user ID.
type CreateTweetRequest struct {
	Content string `json:"content"`
	User    string `json:"user"`
}
