// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package wal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryLoop_Backoff(t *testing.T) {
	w := openTestWAL(t)
	r := NewRetryLoop(w, NewOutbox(w, &fakeTarget{}))

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{8, 256 * time.Second},
		{9, maxBackoff},
		{60, maxBackoff},
	}
	for _, tt := range tests {
		if got := r.backoff(tt.attempts); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestRetryLoop_ProcessEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers after backoff", func(t *testing.T) {
		w := openTestWAL(t)
		clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		w.now = clock.Now
		target := &fakeTarget{err: errors.New("down")}
		outbox := NewOutbox(w, target)
		r := NewRetryLoop(w, outbox)

		id, _ := outbox.Enqueue(ctx, tweetBody{Content: "x", User: "a"})
		pending, _ := w.GetPending(ctx)

		if got := r.processEntry(ctx, pending[0]); got != retrySkipped {
			t.Fatalf("within backoff: result = %v, want skipped", got)
		}

		clock.Advance(2 * time.Second)
		target.setErr(nil)
		if got := r.processEntry(ctx, pending[0]); got != retrySuccess {
			t.Fatalf("after backoff: result = %v, want success", got)
		}
		sent := target.published()
		if len(sent) != 1 || sent[0].id != id {
			t.Errorf("published = %+v, want %s", sent, id)
		}
	})

	t.Run("records failed attempt", func(t *testing.T) {
		w := openTestWAL(t)
		r := NewRetryLoop(w, NewOutbox(w, &fakeTarget{err: errors.New("down")}))
		entry, _ := w.Write(ctx, "tweets.create", []byte(`{}`))

		if got := r.processEntry(ctx, entry); got != retryFailed {
			t.Fatalf("result = %v, want failed", got)
		}
		pending, _ := w.GetPending(ctx)
		if pending[0].Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", pending[0].Attempts)
		}
	})

	t.Run("drops after max retries", func(t *testing.T) {
		w := openTestWAL(t)
		r := NewRetryLoop(w, NewOutbox(w, &fakeTarget{}))
		entry, _ := w.Write(ctx, "tweets.create", []byte(`{}`))
		entry.Attempts = r.config.MaxRetries

		if got := r.processEntry(ctx, entry); got != retryMaxRetried {
			t.Fatalf("result = %v, want max retried", got)
		}
		if s := w.Stats(); s.PendingCount != 0 {
			t.Errorf("PendingCount = %d, want 0", s.PendingCount)
		}
	})

	t.Run("drops expired", func(t *testing.T) {
		w := openTestWAL(t)
		clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		w.now = clock.Now
		target := &fakeTarget{}
		r := NewRetryLoop(w, NewOutbox(w, target))
		entry, _ := w.Write(ctx, "tweets.create", []byte(`{}`))
		clock.Advance(2 * time.Hour)

		if got := r.processEntry(ctx, entry); got != retryExpired {
			t.Fatalf("result = %v, want expired", got)
		}
		if len(target.published()) != 0 {
			t.Error("expired entry was published")
		}
	})

	t.Run("skips claimed entry", func(t *testing.T) {
		w := openTestWAL(t)
		r := NewRetryLoop(w, NewOutbox(w, &fakeTarget{}))
		entry, _ := w.Write(ctx, "tweets.create", []byte(`{}`))
		w.TryClaimEntry(entry.ID)

		if got := r.processEntry(ctx, entry); got != retrySkipped {
			t.Fatalf("result = %v, want skipped", got)
		}
	})
}

func TestRetryLoop_StartStop(t *testing.T) {
	w := openTestWAL(t)
	target := &fakeTarget{err: errors.New("down")}
	outbox := NewOutbox(w, target)
	r := NewRetryLoop(w, outbox)

	_, _ = outbox.Enqueue(context.Background(), tweetBody{Content: "x", User: "a"})
	target.setErr(nil)

	// first retry is due two seconds after the failed enqueue
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !r.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(target.published()) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	r.Stop()
	r.Stop()

	if r.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if len(target.published()) != 1 {
		t.Errorf("published %d messages, want 1", len(target.published()))
	}
}
