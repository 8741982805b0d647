// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tweetqueue/internal/database"
	"github.com/tomtom215/tweetqueue/internal/database/query"
	"github.com/tomtom215/tweetqueue/internal/metrics"
	"github.com/tomtom215/tweetqueue/internal/models"
)

// SaveDeadLetter stores a dead-letter record. A record whose ID is already
// stored is ignored, so redelivered DLQ messages are not duplicated.
func (s *Store) SaveDeadLetter(ctx context.Context, rec *models.DeadLetterRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("postgres: dead letter record has no id")
	}

	original, err := database.EncodeOriginalMessage(rec.OriginalMessage)
	if err != nil {
		return err
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO dead_letters
			(id, message_id, error, failed_attempts, original_message, raw_payload, failed_at, stored_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, nullable(rec.MessageID), rec.Error, rec.FailedAttempts,
		original, nullable(rec.RawPayload), rec.FailedAt, s.now())
	metrics.RecordDBQuery("insert", "dead_letters", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("postgres: insert dead letter: %w", err)
	}
	return nil
}

// ListDeadLetters returns stored records matching filter, newest first.
func (s *Store) ListDeadLetters(ctx context.Context, filter models.DeadLetterFilter) ([]*models.DeadLetterRecord, error) {
	wb := query.NewWhereBuilder(query.Dollar)
	wb.AddSince("failed_at", filter.Since)
	if filter.Kind != "" {
		wb.AddPrefix("error", filter.Kind+" - ")
	}
	where, args := wb.BuildWithPrefix()
	q := `SELECT id, COALESCE(message_id, ''), error, failed_attempts, original_message::text,
			COALESCE(raw_payload, ''), failed_at
		FROM dead_letters ` + where + `
		ORDER BY failed_at DESC, id
		LIMIT ` + wb.Next()
	args = append(args, filter.EffectiveLimit())

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := s.pool.Query(ctx, q, args...)
	metrics.RecordDBQuery("select", "dead_letters", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("postgres: list dead letters: %w", err)
	}
	defer rows.Close()

	out := []*models.DeadLetterRecord{}
	for rows.Next() {
		rec := &models.DeadLetterRecord{}
		var original *string
		if err := rows.Scan(&rec.ID, &rec.MessageID, &rec.Error, &rec.FailedAttempts,
			&original, &rec.RawPayload, &rec.FailedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan dead letter: %w", err)
		}
		rec.FailedAt = rec.FailedAt.UTC()
		if original != nil {
			rec.OriginalMessage, err = models.DecodeRetryEnvelope([]byte(*original))
			if err != nil {
				return nil, fmt.Errorf("postgres: decode dead letter %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
