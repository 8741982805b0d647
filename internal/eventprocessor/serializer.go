// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tweetqueue/internal/models"
)

// Serializer handles payload encoding/decoding for queue messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts a payload to JSON bytes.
func (s *Serializer) Marshal(payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

// UnmarshalEnvelope decodes a create-tweet message body.
// Bodies that are not JSON objects fail with models.ErrNotAnObject.
func (s *Serializer) UnmarshalEnvelope(data []byte) (*models.RetryEnvelope, error) {
	env, err := models.DecodeRetryEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

// UnmarshalDeadLetter decodes a dead-letter record.
func (s *Serializer) UnmarshalDeadLetter(data []byte) (*models.DeadLetterRecord, error) {
	var rec models.DeadLetterRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal dead letter: %w", err)
	}
	return &rec, nil
}
