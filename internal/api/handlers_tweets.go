// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/tweets"
	"github.com/tomtom215/tweetqueue/internal/validation"
)

// Tweet listing bounds.
const (
	defaultTweetLimit = 20
	maxTweetLimit     = 100
)

// Root is the liveness endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Hello World"))
}

// EnqueueTweet accepts {content, user}, checks that both are present and
// publishes a fresh envelope to the create-tweets topic. Length, format and
// user existence are checked by the consumer, so a 202 only means queued.
func (h *Handler) EnqueueTweet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	env, err := models.DecodeRetryEnvelope(body)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Request body must be a JSON object", nil)
		return
	}

	req, err := tweets.RequestFromEnvelope(env)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, tweets.Classify(err), nil)
		return
	}

	// retryCount and unknown keys from the client are not carried over
	messageID, err := h.queue.Enqueue(r.Context(), models.NewRetryEnvelope(req))
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Queue is unavailable", err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("message_id", messageID).
		Str("topic", h.queue.Topic()).
		Msg("Tweet enqueued")

	respondData(w, http.StatusAccepted, models.EnqueueResponse{
		MessageID: messageID,
		Topic:     h.queue.Topic(),
	}, start)
}

// userTweetsResponse is the body of GET /api/v1/users/{username}/tweets.
type userTweetsResponse struct {
	User   models.User    `json:"user"`
	Tweets []models.Tweet `json:"tweets"`
}

// UserTweets lists a user's stored tweets, newest first.
func (h *Handler) UserTweets(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	username := chi.URLParam(r, "username")
	if !validation.IsUsername(username) {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Username must contain only alphanumeric, underscore, and hyphen", nil)
		return
	}

	limit, ok := parseLimit(w, r, defaultTweetLimit, maxTweetLimit)
	if !ok {
		return
	}

	user, err := h.store.FindByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, tweets.ErrUserNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "User not found", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load user", err)
		return
	}

	list, err := h.store.ListTweetsByUser(r.Context(), user.Username, limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to list tweets", err)
		return
	}
	if list == nil {
		list = []models.Tweet{}
	}

	respondData(w, http.StatusOK, userTweetsResponse{User: *user, Tweets: list}, start)
}
