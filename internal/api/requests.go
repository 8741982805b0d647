// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// maxBodyBytes bounds request bodies; a tweet is at most 1000 characters.
const maxBodyBytes = 64 << 10

// readBody reads a bounded JSON body. On failure it has already written the
// error response.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if !isJSON(r) {
		respondError(w, r, http.StatusUnsupportedMediaType, ErrCodeBadRequest, "Content-Type must be application/json", nil)
		return nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "Request body is too large", nil)
			return nil, false
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read request body", err)
		return nil, false
	}
	return body, true
}

// parseLimit reads ?limit=. Missing means def; values above max are capped.
// A non-numeric or non-positive value is rejected.
func parseLimit(w http.ResponseWriter, r *http.Request, def, max int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer", nil)
		return 0, false
	}
	if limit > max {
		limit = max
	}
	return limit, true
}

// isJSON reports whether the request declares a JSON body. A missing
// Content-Type is accepted.
func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(strings.ToLower(ct), "application/json")
}
