// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tweetqueue/internal/database/query"
	"github.com/tomtom215/tweetqueue/internal/models"
)

// SaveDeadLetter stores a dead-letter record. Saving a record whose ID is
// already stored is a no-op, so redelivered DLQ messages are not duplicated.
func (db *DB) SaveDeadLetter(ctx context.Context, rec *models.DeadLetterRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("dead letter record has no id")
	}

	original, err := EncodeOriginalMessage(rec.OriginalMessage)
	if err != nil {
		return err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO dead_letters
			(id, message_id, error, failed_attempts, original_message, raw_payload, failed_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, nullString(rec.MessageID), rec.Error, rec.FailedAttempts,
		original, nullString(rec.RawPayload), rec.FailedAt.UTC(), db.now().UTC())
	observe("insert", "dead_letters", start, err)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// ListDeadLetters returns stored records matching filter, newest first.
func (db *DB) ListDeadLetters(ctx context.Context, filter models.DeadLetterFilter) ([]*models.DeadLetterRecord, error) {
	wb := query.NewWhereBuilder(query.Question)
	wb.AddSince("failed_at", filter.Since)
	if filter.Kind != "" {
		wb.AddPrefix("error", filter.Kind+" - ")
	}
	where, args := wb.BuildWithPrefix()
	q := `SELECT id, COALESCE(message_id, ''), error, failed_attempts, original_message,
			COALESCE(raw_payload, ''), failed_at
		FROM dead_letters ` + where + `
		ORDER BY failed_at DESC, id
		LIMIT ` + wb.Next()
	args = append(args, filter.EffectiveLimit())

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, q, args...)
	observe("select", "dead_letters", start, err)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	out := []*models.DeadLetterRecord{}
	for rows.Next() {
		rec := &models.DeadLetterRecord{}
		var original sql.NullString
		if err := rows.Scan(&rec.ID, &rec.MessageID, &rec.Error, &rec.FailedAttempts,
			&original, &rec.RawPayload, &rec.FailedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		if original.Valid {
			rec.OriginalMessage, err = models.DecodeRetryEnvelope([]byte(original.String))
			if err != nil {
				return nil, fmt.Errorf("decode dead letter %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EncodeOriginalMessage renders an envelope for a nullable text column.
func EncodeOriginalMessage(env *models.RetryEnvelope) (sql.NullString, error) {
	if env == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(env)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode original message: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
