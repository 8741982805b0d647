// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/tweetqueue/internal/models"
)

type memDeadLetterStore struct {
	mu       sync.Mutex
	records  []*models.DeadLetterRecord
	failFor  int
	attempts int
}

func (s *memDeadLetterStore) SaveDeadLetter(_ context.Context, rec *models.DeadLetterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failFor > 0 {
		s.failFor--
		return errors.New("disk full")
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memDeadLetterStore) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *memDeadLetterStore) Records() []*models.DeadLetterRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.DeadLetterRecord(nil), s.records...)
}

func TestNewDeadLetterSink_Validation(t *testing.T) {
	if _, err := NewDeadLetterSink(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestDeadLetterSink_Handle(t *testing.T) {
	store := &memDeadLetterStore{}
	sink, err := NewDeadLetterSink(store)
	if err != nil {
		t.Fatalf("NewDeadLetterSink: %v", err)
	}

	body := `{"originalMessage":{"content":"hi","user":"ghost","retryCount":3},"error":"UserNotFoundError - User not found","failedAttempts":3,"failedAt":"2026-03-14T15:09:26Z"}`
	msg := message.NewMessage("dl-1", []byte(body))

	if err := sink.Handle(msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	recs := store.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.ID != "dl-1" {
		t.Errorf("ID = %q, want the message UUID", rec.ID)
	}
	if rec.FailedAttempts != 3 || rec.OriginalMessage == nil || rec.OriginalMessage.User != "ghost" {
		t.Errorf("record = %+v", rec)
	}
	if sink.Persisted() != 1 {
		t.Errorf("Persisted() = %d, want 1", sink.Persisted())
	}
}

func TestDeadLetterSink_HandleErrors(t *testing.T) {
	t.Run("undecodable record is discarded", func(t *testing.T) {
		store := &memDeadLetterStore{}
		sink, _ := NewDeadLetterSink(store)
		if err := sink.Handle(message.NewMessage("x", []byte("garbage"))); err != nil {
			t.Errorf("expected nil so the record is acked, got %v", err)
		}
		if sink.Rejected() != 1 || len(store.Records()) != 0 {
			t.Errorf("rejected=%d stored=%d, want 1/0", sink.Rejected(), len(store.Records()))
		}
	})

	t.Run("store failure is returned for retry", func(t *testing.T) {
		store := &memDeadLetterStore{failFor: 1}
		sink, _ := NewDeadLetterSink(store)
		err := sink.Handle(message.NewMessage("x", []byte(`{"error":"e","failedAttempts":0}`)))
		if err == nil {
			t.Error("expected store error to be returned")
		}
	})
}

func TestDeadLetterSink_RouterRetriesStoreFailures(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	store := &memDeadLetterStore{failFor: 2}
	sink, _ := NewDeadLetterSink(store)

	cfg := DefaultRouterConfig()
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	cfg.CloseTimeout = time.Second
	router, err := NewRouter(&cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	sink.Register(router, testDLQTopic, pubsub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	<-router.RunAsync(ctx)
	defer router.Close()

	dlq, _ := NewTopicChannel(pubsub, testDLQTopic)
	rec := &models.DeadLetterRecord{Error: "Error - boom", FailedAttempts: 3, FailedAt: fixedNow}
	if err := dlq.Send(ctx, rec); err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitFor(t, "dead letter to be stored", func() bool { return len(store.Records()) == 1 })

	if got := store.Records()[0].Error; got != "Error - boom" {
		t.Errorf("Error = %q", got)
	}
}

func TestDeadLetterSink_UnstorableRecordIsPoisoned(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	store := &memDeadLetterStore{failFor: math.MaxInt32}
	sink, _ := NewDeadLetterSink(store)

	cfg := DefaultRouterConfig()
	cfg.RetryMaxRetries = 2
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	cfg.CloseTimeout = time.Second
	cfg.PoisonQueueTopic = testDLQTopic + ".poison"
	router, err := NewRouter(&cfg, pubsub, nil)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	sink.Register(router, testDLQTopic, pubsub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poisoned, err := pubsub.Subscribe(ctx, cfg.PoisonQueueTopic)
	if err != nil {
		t.Fatalf("subscribe poison topic: %v", err)
	}
	<-router.RunAsync(ctx)
	defer router.Close()

	dlq, _ := NewTopicChannel(pubsub, testDLQTopic)
	rec := &models.DeadLetterRecord{Error: "Error - boom", FailedAttempts: 3, FailedAt: fixedNow}
	if err := dlq.Send(ctx, rec); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-poisoned:
		if reason := msg.Metadata.Get(middleware.ReasonForPoisonedKey); !strings.Contains(reason, "disk full") {
			t.Errorf("reason = %q, want the store error", reason)
		}
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the record on the poison topic")
	}

	attempts := store.Attempts()
	if attempts != cfg.RetryMaxRetries+1 {
		t.Errorf("attempts = %d, want %d", attempts, cfg.RetryMaxRetries+1)
	}

	// a nacked record would come straight back from gochannel
	time.Sleep(100 * time.Millisecond)
	if got := store.Attempts(); got != attempts {
		t.Errorf("record was redelivered after being parked: %d attempts", got)
	}
	if sink.Persisted() != 0 {
		t.Errorf("Persisted = %d, want 0", sink.Persisted())
	}
}
