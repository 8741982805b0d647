// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

func newTestProcessor(t *testing.T, store *memStore, maxRetries int, withDLQ bool) (*BatchProcessor, *recordingChannel, *recordingChannel) {
	t.Helper()
	d, retry, dlq := newTestDispatcher(t, maxRetries, withDLQ)
	p, err := NewBatchProcessor(store, d)
	if err != nil {
		t.Fatalf("NewBatchProcessor: %v", err)
	}
	p.WithClock(func() time.Time { return fixedNow })
	return p, retry, dlq
}

func assertAllAcked(t *testing.T, msgs []*message.Message) {
	t.Helper()
	for i, msg := range msgs {
		if !isAcked(msg) {
			t.Errorf("message %d (%s) was not acked", i, msg.Payload)
		}
	}
}

func TestNewBatchProcessor_Validation(t *testing.T) {
	d, _, _ := newTestDispatcher(t, 3, false)
	if _, err := NewBatchProcessor(nil, d); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil store, got %v", err)
	}
	if _, err := NewBatchProcessor(newMemStore(), nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil dispatcher, got %v", err)
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	store := newMemStore("alice")
	p, _, _ := newTestProcessor(t, store, 3, true)

	result := p.ProcessBatch(context.Background(), nil)
	if result != (BatchResult{}) {
		t.Errorf("result = %+v, want zero", result)
	}
	if acquired, _ := store.Counts(); acquired != 0 {
		t.Errorf("acquired = %d, want 0 for an empty batch", acquired)
	}
}

func TestProcessBatch_Success(t *testing.T) {
	store := newMemStore("alice")
	p, retry, dlq := newTestProcessor(t, store, 3, true)

	msgs := []*message.Message{newTestMessage(`{"content":"Hello","user":"alice"}`)}
	result := p.ProcessBatch(context.Background(), msgs)

	if result.Received != 1 || result.Succeeded != 1 || result.Failed() != 0 {
		t.Errorf("result = %+v, want one success", result)
	}
	assertAllAcked(t, msgs)

	stored := store.Tweets()
	if len(stored) != 1 {
		t.Fatalf("expected 1 tweet stored, got %d", len(stored))
	}
	if stored[0].Content != "Hello" || stored[0].User.Username != "alice" {
		t.Errorf("stored tweet = %+v", stored[0])
	}
	if !stored[0].CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v, want %v", stored[0].CreatedAt, fixedNow)
	}
	if len(retry.Sent())+len(dlq.Sent()) != 0 {
		t.Error("expected no retry traffic for a successful message")
	}

	acquired, released := store.Counts()
	if acquired != 1 || released != 1 {
		t.Errorf("session acquired/released = %d/%d, want 1/1", acquired, released)
	}
}

func TestProcessBatch_UnknownUserRequeues(t *testing.T) {
	store := newMemStore("alice")
	p, retry, _ := newTestProcessor(t, store, 3, true)

	msgs := []*message.Message{newTestMessage(`{"content":"Hello","user":"ghost"}`)}
	result := p.ProcessBatch(context.Background(), msgs)

	if result.Requeued != 1 {
		t.Errorf("result = %+v, want one requeue", result)
	}
	assertAllAcked(t, msgs)

	sent := retry.envelopes(t)
	if len(sent) != 1 || sent[0].RetryCount != 1 || sent[0].User != "ghost" {
		t.Errorf("requeued = %+v, want ghost at retryCount 1", sent)
	}
}

func TestProcessBatch_ExhaustedDeadLetters(t *testing.T) {
	store := newMemStore("alice")
	p, _, dlq := newTestProcessor(t, store, 3, true)

	msgs := []*message.Message{newTestMessage(`{"content":"Hello","user":"ghost","retryCount":3}`)}
	result := p.ProcessBatch(context.Background(), msgs)

	if result.DeadLettered != 1 {
		t.Errorf("result = %+v, want one dead letter", result)
	}
	assertAllAcked(t, msgs)

	recs := dlq.deadLetters(t)
	if len(recs) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(recs))
	}
	if recs[0].Error != "UserNotFoundError - User not found" {
		t.Errorf("Error = %q", recs[0].Error)
	}
	if recs[0].MessageID != msgs[0].UUID {
		t.Errorf("MessageID = %q, want %q", recs[0].MessageID, msgs[0].UUID)
	}
}

func TestProcessBatch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing content", `{"user":"alice"}`, "CreateTweetValidationError - Content is required"},
		{"missing user", `{"content":"hi"}`, "CreateTweetValidationError - User is required"},
		{"too long", `{"content":"` + strings.Repeat("x", 1001) + `","user":"alice"}`, "CreateTweetValidationError - Content exceeds maximum length of 1000 characters"},
		{"astral characters over limit", `{"content":"` + strings.Repeat("😀", 600) + `","user":"alice"}`, "CreateTweetValidationError - Content exceeds maximum length of 1000 characters"},
		{"non-string content", `{"content":123,"user":"alice"}`, "CreateTweetValidationError - Content must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore("alice")
			p, _, dlq := newTestProcessor(t, store, 0, true)

			msgs := []*message.Message{newTestMessage(tt.body)}
			result := p.ProcessBatch(context.Background(), msgs)
			if result.DeadLettered != 1 {
				t.Fatalf("result = %+v, want one dead letter", result)
			}
			assertAllAcked(t, msgs)

			recs := dlq.deadLetters(t)
			if recs[0].Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", recs[0].Error, tt.wantErr)
			}
			if len(store.Tweets()) != 0 {
				t.Error("nothing should be stored for an invalid request")
			}
		})
	}
}

func TestProcessBatch_AcquireFailure(t *testing.T) {
	store := newMemStore("alice")
	store.acquireErr = errors.New("pool exhausted")
	p, retry, _ := newTestProcessor(t, store, 3, true)

	msgs := []*message.Message{
		newTestMessage(`{"content":"a","user":"alice"}`),
		newTestMessage(`{"content":"b","user":"alice"}`),
	}
	result := p.ProcessBatch(context.Background(), msgs)

	if result.Received != 2 || result.Requeued != 2 {
		t.Errorf("result = %+v, want two requeues", result)
	}
	assertAllAcked(t, msgs)
	if len(retry.Sent()) != 2 {
		t.Errorf("expected 2 requeued messages, got %d", len(retry.Sent()))
	}
	if _, released := store.Counts(); released != 0 {
		t.Errorf("released = %d, want 0 when acquire failed", released)
	}
}

func TestProcessBatch_AcquireFailureMessage(t *testing.T) {
	store := newMemStore("alice")
	store.acquireErr = errors.New("pool exhausted")
	p, _, dlq := newTestProcessor(t, store, 0, true)

	p.ProcessBatch(context.Background(), []*message.Message{newTestMessage(`{"content":"a","user":"alice"}`)})

	recs := dlq.deadLetters(t)
	if len(recs) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(recs))
	}
	if recs[0].Error != "Error - acquire store session: pool exhausted" {
		t.Errorf("Error = %q", recs[0].Error)
	}
}

func TestProcessBatch_PanicIsRecovered(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		wantErr string
	}{
		{"error value", errors.New("driver exploded"), "Error - driver exploded"},
		{"non-error value", 42, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore("alice")
			store.panicValue = tt.value
			p, _, dlq := newTestProcessor(t, store, 0, true)

			msgs := []*message.Message{
				newTestMessage(`{"content":"a","user":"alice"}`),
				newTestMessage(`{"content":"b","user":"alice"}`),
			}
			result := p.ProcessBatch(context.Background(), msgs)

			if result.DeadLettered != 2 {
				t.Errorf("result = %+v, want two dead letters", result)
			}
			assertAllAcked(t, msgs)
			for _, rec := range dlq.deadLetters(t) {
				if rec.Error != tt.wantErr {
					t.Errorf("Error = %q, want %q", rec.Error, tt.wantErr)
				}
			}
			if _, released := store.Counts(); released != 1 {
				t.Errorf("released = %d, want 1", released)
			}
		})
	}
}

func TestProcessBatch_Undecodable(t *testing.T) {
	store := newMemStore("alice")
	p, retry, dlq := newTestProcessor(t, store, 3, true)

	msgs := []*message.Message{
		newTestMessage(`not json`),
		newTestMessage(`["an","array"]`),
	}
	result := p.ProcessBatch(context.Background(), msgs)

	if result.DeadLettered != 2 {
		t.Errorf("result = %+v, want two dead letters", result)
	}
	assertAllAcked(t, msgs)
	if len(retry.Sent()) != 0 {
		t.Error("undecodable bodies must not be requeued")
	}
	recs := dlq.deadLetters(t)
	if len(recs) != 2 || recs[0].RawPayload != "not json" {
		t.Errorf("dead letters = %+v", recs)
	}
}

func TestProcessBatch_DispatchFailureStillAcks(t *testing.T) {
	store := newMemStore("alice")
	p, retry, _ := newTestProcessor(t, store, 3, true)
	retry.err = errors.New("broker down")

	msgs := []*message.Message{newTestMessage(`{"content":"a","user":"ghost"}`)}
	result := p.ProcessBatch(context.Background(), msgs)

	if result.DispatchFailures != 1 {
		t.Errorf("result = %+v, want one dispatch failure", result)
	}
	assertAllAcked(t, msgs)
}

func TestProcessBatch_MixedBatchAccounting(t *testing.T) {
	store := newMemStore("alice")
	p, _, _ := newTestProcessor(t, store, 1, true)

	msgs := []*message.Message{
		newTestMessage(`{"content":"ok","user":"alice"}`),
		newTestMessage(`{"content":"retry me","user":"ghost"}`),
		newTestMessage(`{"content":"give up","user":"ghost","retryCount":1}`),
		newTestMessage(`{"content":"second","user":"alice"}`),
		newTestMessage(`42`),
	}
	result := p.ProcessBatch(context.Background(), msgs)

	if result.Received != 5 {
		t.Errorf("Received = %d, want 5", result.Received)
	}
	if result.Succeeded != 2 || result.Requeued != 1 || result.DeadLettered != 2 {
		t.Errorf("result = %+v", result)
	}
	sum := result.Succeeded + result.Requeued + result.DeadLettered + result.Dropped + result.DispatchFailures
	if sum != result.Received {
		t.Errorf("outcomes sum to %d, want %d", sum, result.Received)
	}
	assertAllAcked(t, msgs)

	stored := store.Tweets()
	if len(stored) != 2 || stored[0].Content != "ok" || stored[1].Content != "second" {
		t.Errorf("stored = %+v, want ok then second", stored)
	}
}

func TestProcessBatch_IgnoresCanceledContext(t *testing.T) {
	store := newMemStore("alice")
	p, _, _ := newTestProcessor(t, store, 3, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msgs := []*message.Message{newTestMessage(`{"content":"late","user":"alice"}`)}
	result := p.ProcessBatch(ctx, msgs)
	if result.Succeeded != 1 {
		t.Errorf("result = %+v, want the batch to finish despite cancellation", result)
	}
}
