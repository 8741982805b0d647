// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TestNewRouter_NilLogger verifies router creation with nil logger and config.
func TestNewRouter_NilLogger(t *testing.T) {
	t.Parallel()

	router, err := NewRouter(nil, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter error: %v", err)
	}
	defer router.Close()

	if router.config.CloseTimeout != DefaultRouterConfig().CloseTimeout {
		t.Error("Router config not defaulted")
	}
}

// TestNewRouter_WithThrottleAndPoisonQueue verifies optional middleware configuration.
func TestNewRouter_WithThrottleAndPoisonQueue(t *testing.T) {
	t.Parallel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	cfg := DefaultRouterConfig()
	cfg.ThrottlePerSecond = 100
	cfg.PoisonQueueTopic = "tweets.create.dlq.poison"

	router, err := NewRouter(&cfg, pubsub, nil)
	if err != nil {
		t.Fatalf("NewRouter error: %v", err)
	}
	defer router.Close()

	if router.config.ThrottlePerSecond != 100 {
		t.Errorf("ThrottlePerSecond = %d, want 100", router.config.ThrottlePerSecond)
	}
}

// TestRouter_RunAsync verifies the handler receives messages once running.
func TestRouter_RunAsync(t *testing.T) {
	t.Parallel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	cfg := DefaultRouterConfig()
	cfg.CloseTimeout = 100 * time.Millisecond

	router, err := NewRouter(&cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter error: %v", err)
	}
	if router.IsRunning() {
		t.Error("Router should not be running before Run()")
	}

	received := make(chan string, 1)
	router.AddConsumerHandler("echo", "router.test", pubsub, func(msg *message.Message) error {
		received <- string(msg.Payload)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	select {
	case <-router.RunAsync(ctx):
	case <-time.After(2 * time.Second):
		t.Fatal("Router did not start within timeout")
	}

	if err := pubsub.Publish("router.test", message.NewMessage(watermill.NewUUID(), []byte("ping"))); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-received:
		if got != "ping" {
			t.Errorf("payload = %q, want ping", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not receive the message")
	}

	if h := router.HealthCheck(ctx); !h.Healthy {
		t.Errorf("expected healthy router, got %q", h.Error)
	}

	if err := router.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
}
