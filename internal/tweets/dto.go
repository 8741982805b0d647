// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package tweets

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/validation"
)

// MaxContentLength is the maximum tweet length in UTF-16 code units, so a
// character outside the Basic Multilingual Plane counts twice.
const MaxContentLength = 1000

type createTweetInput struct {
	Content string `json:"content" validate:"required"`
	User    string `json:"user" validate:"required"`
}

type tweetInput struct {
	User    *models.User `json:"user" validate:"required"`
	Content string       `json:"content" validate:"required,utf16max=1000,safecontent"`
}

type userInput struct {
	ID       string `json:"id" validate:"required"`
	Username string `json:"username" validate:"required,min=3,max=50,username"`
}

// validationMessages maps "<field>.<tag>" to the message reported to callers.
var validationMessages = map[string]string{
	"content.required":    "Content is required",
	"content.utf16max":    "Content exceeds maximum length of 1000 characters",
	"content.safecontent": "Invalid content format",
	"user.required":       "User is required",
	"id.required":         "Id is required",
	"username.required":   "Username is required",
	"username.min":        "Username must be at least 3 characters long",
	"username.max":        "Username must be less than 50 characters long",
	"username.username":   "Username must contain only alphanumeric, underscore, and hyphen",
}

// validate runs the struct rules and converts the first failure into a kind error.
func validate(kind Kind, in interface{}) error {
	verr := validation.ValidateStruct(in)
	if verr == nil {
		return nil
	}

	first := verr.First()
	if first == nil {
		return NewError(kind, verr.Error())
	}
	if msg, ok := validationMessages[first.Field()+"."+first.Tag()]; ok {
		return NewError(kind, msg)
	}
	return NewError(kind, first.Error())
}

// NewCreateTweetRequest checks that both content and user are present.
// Length and format rules are deferred to NewTweet.
func NewCreateTweetRequest(req models.CreateTweetRequest) (models.CreateTweetRequest, error) {
	if err := validate(KindTweetValidation, &createTweetInput{Content: req.Content, User: req.User}); err != nil {
		return models.CreateTweetRequest{}, err
	}
	return req, nil
}

// RequestFromEnvelope is NewCreateTweetRequest for a decoded message body.
// A content value that is set but is not a string is reported as such
// rather than as missing.
func RequestFromEnvelope(env *models.RetryEnvelope) (models.CreateTweetRequest, error) {
	if env.User != "" {
		if raw, ok := env.Extra("content"); ok && isTruthy(raw) {
			return models.CreateTweetRequest{}, NewError(KindTweetValidation, "Content must be a string")
		}
	}
	return NewCreateTweetRequest(env.CreateTweetRequest)
}

// isTruthy reports whether raw is a JSON value other than null, false or 0.
func isTruthy(raw json.RawMessage) bool {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	default:
		return true
	}
}

// NewUser validates a resolved user's id and username.
func NewUser(id, username string) (models.User, error) {
	if err := validate(KindUserValidation, &userInput{ID: id, Username: username}); err != nil {
		return models.User{}, err
	}
	return models.User{ID: id, Username: username}, nil
}

// TweetDraft is a validated tweet that has not been stored yet.
// Its fields are fixed at construction.
type TweetDraft struct {
	content   string
	user      models.User
	createdAt time.Time
	updatedAt time.Time
}

// NewTweet validates content against the tweet rules and the user against
// the user rules, stamping both timestamps with now.
func NewTweet(content string, user *models.User, now time.Time) (TweetDraft, error) {
	if err := validate(KindTweetValidation, &tweetInput{User: user, Content: content}); err != nil {
		return TweetDraft{}, err
	}

	u, err := NewUser(user.ID, user.Username)
	if err != nil {
		return TweetDraft{}, err
	}

	return TweetDraft{
		content:   content,
		user:      u,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Content returns the tweet text.
func (d TweetDraft) Content() string { return d.content }

// User returns the author.
func (d TweetDraft) User() models.User { return d.user }

// CreatedAt returns the creation timestamp.
func (d TweetDraft) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last-update timestamp.
func (d TweetDraft) UpdatedAt() time.Time { return d.updatedAt }

// ToEntity converts the draft to a Tweet with no ID.
func (d TweetDraft) ToEntity() models.Tweet {
	return models.Tweet{
		User:      d.user,
		Content:   d.content,
		CreatedAt: d.createdAt,
		UpdatedAt: d.updatedAt,
	}
}
