// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tweetqueue/internal/database"
	"github.com/tomtom215/tweetqueue/internal/tweets"
)

type createUserRequest struct {
	Username string `json:"username"`
}

// CreateUser seeds a user so enqueued tweets have an author to resolve.
// The username follows the same rules the consumer applies on lookup.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Request body must be a JSON object with a username", nil)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Username)
	var terr *tweets.Error
	switch {
	case err == nil:
		h.audit.LogUserCreated(r.Context(), actor(r), clientIP(r), user.ID, user.Username)
		respondData(w, http.StatusCreated, user, start)
	case errors.Is(err, database.ErrUserExists):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "Username is already taken", nil)
	case errors.As(err, &terr) && terr.Kind == tweets.KindUserValidation:
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, terr.Message, nil)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to create user", err)
	}
}
