// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/tweets"
)

// memStore is an in-memory tweets.Store.
type memStore struct {
	mu         sync.Mutex
	users      map[string]models.User
	tweets     []models.Tweet
	acquireErr error
	createErr  error
	panicValue interface{}
	acquired   int
	released   int
}

func newMemStore(usernames ...string) *memStore {
	s := &memStore{users: make(map[string]models.User)}
	for i, name := range usernames {
		s.users[name] = models.User{ID: fmt.Sprintf("u-%d", i+1), Username: name}
	}
	return s
}

func (s *memStore) Acquire(ctx context.Context) (tweets.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquired++
	return &memSession{store: s}, nil
}

func (s *memStore) Tweets() []models.Tweet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Tweet(nil), s.tweets...)
}

func (s *memStore) Counts() (acquired, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired, s.released
}

type memSession struct {
	store    *memStore
	released bool
}

func (m *memSession) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	u, ok := m.store.users[username]
	if !ok {
		return nil, tweets.NewError(tweets.KindUserNotFound, "User not found")
	}
	return &u, nil
}

func (m *memSession) CreateTweet(_ context.Context, tweet *models.Tweet) (*models.Tweet, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.panicValue != nil {
		panic(m.store.panicValue)
	}
	if m.store.createErr != nil {
		return nil, m.store.createErr
	}
	stored := *tweet
	stored.ID = fmt.Sprintf("t-%d", len(m.store.tweets)+1)
	m.store.tweets = append(m.store.tweets, stored)
	return &stored, nil
}

func (m *memSession) Release() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.released {
		return
	}
	m.released = true
	m.store.released++
}

// recordingChannel captures sent payloads as JSON.
type recordingChannel struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (c *recordingChannel) Send(_ context.Context, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *recordingChannel) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func (c *recordingChannel) envelopes(t *testing.T) []*models.RetryEnvelope {
	t.Helper()
	var out []*models.RetryEnvelope
	for _, data := range c.Sent() {
		env, err := models.DecodeRetryEnvelope(data)
		if err != nil {
			t.Fatalf("decode sent envelope %s: %v", data, err)
		}
		out = append(out, env)
	}
	return out
}

func (c *recordingChannel) deadLetters(t *testing.T) []*models.DeadLetterRecord {
	t.Helper()
	var out []*models.DeadLetterRecord
	for _, data := range c.Sent() {
		var rec models.DeadLetterRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			t.Fatalf("decode dead letter %s: %v", data, err)
		}
		out = append(out, &rec)
	}
	return out
}

func newTestMessage(body string) *message.Message {
	return message.NewMessage(watermill.NewUUID(), []byte(body))
}

func isAcked(msg *message.Message) bool {
	select {
	case <-msg.Acked():
		return true
	default:
		return false
	}
}

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestDispatcher(t *testing.T, maxRetries int, withDLQ bool) (*RetryDispatcher, *recordingChannel, *recordingChannel) {
	t.Helper()
	retry := &recordingChannel{}
	var dlq *recordingChannel
	var dlqChannel Channel
	if withDLQ {
		dlq = &recordingChannel{}
		dlqChannel = dlq
	}
	d, err := NewRetryDispatcher(RetryConfig{MaxRetries: maxRetries}, retry, dlqChannel)
	if err != nil {
		t.Fatalf("NewRetryDispatcher: %v", err)
	}
	d.now = func() time.Time { return fixedNow }
	return d, retry, dlq
}
