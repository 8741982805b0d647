// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package models

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// Wire keys of the queue message body.
const (
	keyContent    = "content"
	keyUser       = "user"
	keyUserAlias  = "userId"
	keyRetryCount = "retryCount"
)

// ErrNotAnObject is returned when a queue message body is not a JSON object.
var ErrNotAnObject = errors.New("message body is not a JSON object")

// RetryEnvelope is a CreateTweetRequest plus the number of failed attempts so far.
//
// Decoding is lenient: a missing or negative retryCount reads as 0, and a
// username sent under the legacy "userId" key is accepted when "user" is
// absent. Keys the pipeline does not understand are carried through
// re-encoding untouched, so a re-enqueued body differs from the original
// only in retryCount.
type RetryEnvelope struct {
	CreateTweetRequest
	RetryCount int

	userKey string
	extra   map[string]json.RawMessage
}

// NewRetryEnvelope starts a fresh attempt lineage for req.
func NewRetryEnvelope(req CreateTweetRequest) *RetryEnvelope {
	return &RetryEnvelope{CreateTweetRequest: req}
}

// DecodeRetryEnvelope parses a queue message body.
// It returns ErrNotAnObject (wrapped) for anything but a JSON object.
func DecodeRetryEnvelope(data []byte) (*RetryEnvelope, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotAnObject
	}
	env := &RetryEnvelope{}
	if err := json.Unmarshal(data, env); err != nil {
		if errors.Is(err, ErrNotAnObject) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrNotAnObject, err)
	}
	return env, nil
}

// WithRetryCount returns a copy of the envelope carrying count.
func (e *RetryEnvelope) WithRetryCount(count int) *RetryEnvelope {
	out := *e
	out.RetryCount = count
	if e.extra != nil {
		out.extra = make(map[string]json.RawMessage, len(e.extra))
		for k, v := range e.extra {
			out.extra[k] = v
		}
	}
	return &out
}

// Extra returns the raw value of a key the pipeline did not interpret.
func (e *RetryEnvelope) Extra(key string) (json.RawMessage, bool) {
	v, ok := e.extra[key]
	return v, ok
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *RetryEnvelope) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return ErrNotAnObject
		}
		return err
	}
	if fields == nil {
		// literal null
		return ErrNotAnObject
	}

	*e = RetryEnvelope{}

	if raw, ok := fields[keyContent]; ok && decodeString(raw, &e.Content) {
		delete(fields, keyContent)
	}

	switch {
	case hasKey(fields, keyUser):
		if decodeString(fields[keyUser], &e.User) {
			delete(fields, keyUser)
		}
		e.userKey = keyUser
	case hasKey(fields, keyUserAlias):
		if decodeString(fields[keyUserAlias], &e.User) {
			delete(fields, keyUserAlias)
		}
		e.userKey = keyUserAlias
	}

	if raw, ok := fields[keyRetryCount]; ok {
		e.RetryCount = decodeCount(raw)
		delete(fields, keyRetryCount)
	}

	if len(fields) > 0 {
		e.extra = fields
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e RetryEnvelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.extra)+3)
	for k, v := range e.extra {
		out[k] = v
	}

	userKey := e.userKey
	if userKey == "" {
		userKey = keyUser
	}
	// Non-string originals stay in extra and win over the zero value.
	if _, kept := e.extra[keyContent]; !kept {
		out[keyContent] = e.Content
	}
	if _, kept := e.extra[userKey]; !kept {
		out[userKey] = e.User
	}
	out[keyRetryCount] = e.RetryCount

	return json.Marshal(out)
}

func hasKey(fields map[string]json.RawMessage, key string) bool {
	_, ok := fields[key]
	return ok
}

func decodeString(raw json.RawMessage, dst *string) bool {
	return json.Unmarshal(raw, dst) == nil
}

// decodeCount reads a retry count, clamping negatives and garbage to 0.
func decodeCount(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// DeadLetterRecord is the terminal record for a lineage that exhausted its retries.
//
// OriginalMessage is nil only when the inbound body could not be decoded at
// all; RawPayload then carries the body verbatim.
type DeadLetterRecord struct {
	ID              string         `json:"id,omitempty"`
	OriginalMessage *RetryEnvelope `json:"originalMessage"`
	Error           string         `json:"error"`
	FailedAttempts  int            `json:"failedAttempts"`
	MessageID       string         `json:"messageId,omitempty"`
	FailedAt        time.Time      `json:"failedAt"`
	RawPayload      string         `json:"rawPayload,omitempty"`
}
