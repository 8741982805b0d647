// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

//go:build integration

package eventprocessor

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/tweetqueue/internal/models"
)

func TestEmbeddedNATS_EndToEnd(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Port = -1
	cfg.StoreDir = t.TempDir()

	server, err := NewEmbeddedServer(&cfg)
	if err != nil {
		t.Fatalf("NewEmbeddedServer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()
	if !server.JetStreamEnabled() {
		t.Fatal("expected JetStream to be enabled")
	}

	nc, err := natsgo.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	streamCfg := DefaultStreamConfig()
	initializer, err := NewStreamInitializer(js, &streamCfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer: %v", err)
	}
	if _, err := initializer.EnsureStream(ctx); err != nil {
		t.Fatalf("EnsureStream: %v", err)
	}

	pub, err := NewPublisher(DefaultPublisherConfig(server.ClientURL()), watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	subCfg := DefaultSubscriberConfig(server.ClientURL())
	subCfg.StreamName = streamCfg.Name
	subCfg.SubscribersCount = 2
	sub, err := NewSubscriber(&subCfg, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	defer sub.Close()

	input, err := NewTopicChannel(pub, "tweets.create")
	if err != nil {
		t.Fatalf("NewTopicChannel: %v", err)
	}
	dispatcher, err := NewRetryDispatcher(DefaultRetryConfig(), input, nil)
	if err != nil {
		t.Fatalf("NewRetryDispatcher: %v", err)
	}
	store := newMemStore("alice")
	processor, err := NewBatchProcessor(store, dispatcher)
	if err != nil {
		t.Fatalf("NewBatchProcessor: %v", err)
	}

	consumerCfg := DefaultConsumerConfig()
	consumerCfg.FlushInterval = 50 * time.Millisecond
	consumer, err := NewBatchConsumer(sub, processor, consumerCfg)
	if err != nil {
		t.Fatalf("NewBatchConsumer: %v", err)
	}
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer consumer.Stop()

	for _, content := range []string{"first", "second", "third"} {
		if err := input.Send(ctx, models.NewRetryEnvelope(models.CreateTweetRequest{Content: content, User: "alice"})); err != nil {
			t.Fatalf("Send %s: %v", content, err)
		}
	}

	waitFor(t, "tweets from JetStream", func() bool { return len(store.Tweets()) == 3 })

	info, err := initializer.GetStreamInfo(ctx)
	if err != nil {
		t.Fatalf("GetStreamInfo: %v", err)
	}
	if info.State.Msgs < 3 {
		t.Errorf("stream holds %d messages, want at least 3", info.State.Msgs)
	}
}
