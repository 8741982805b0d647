// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/tweetqueue/internal/api"
	"github.com/tomtom215/tweetqueue/internal/config"
	"github.com/tomtom215/tweetqueue/internal/eventprocessor"
	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/tweets"
	"github.com/tomtom215/tweetqueue/internal/wal"
)

// Shutdown bounds for components closed outside the supervisor tree.
const (
	storeCloseTimeout     = 10 * time.Second
	transportCloseTimeout = 10 * time.Second
)

// queuePublisher is a Watermill publisher that also reports its health.
type queuePublisher interface {
	message.Publisher
	eventprocessor.HealthCheckable
}

// MessagingComponents holds the transport and the create-tweets pipeline
// built on it. The supervisor drives Start and Shutdown; Close releases the
// transport once the tree has stopped.
type MessagingComponents struct {
	transport string

	// NATS only
	server            *eventprocessor.EmbeddedServer
	natsConn          *natsgo.Conn
	streamInitializer *eventprocessor.StreamInitializer

	publisher      queuePublisher
	source         message.Subscriber
	sinkSubscriber message.Subscriber

	queue      *eventprocessor.TopicChannel
	outboxWAL  *wal.BadgerWAL
	outbox     *wal.Outbox
	users      *tweets.UserCache
	observer   eventprocessor.Observer
	consumer   *eventprocessor.BatchConsumer
	sink       *eventprocessor.DeadLetterSink
	sinkRouter *eventprocessor.Router

	closeOnce sync.Once
}

// InitMessaging builds the transport selected by QUEUE_TRANSPORT and wires
// the retry dispatcher, batch processor and batch consumer onto it. When
// dead letters are persisted and a dead-letter topic is configured, it also
// builds a router that drains that topic into store. A non-nil observer
// receives the outcome of every processed message.
//
//nolint:gocyclo // Sequential initialization of transport and pipeline
func InitMessaging(ctx context.Context, cfg *config.Config, store Store, observer eventprocessor.Observer) (*MessagingComponents, error) {
	logger := watermill.NewSlogLogger(slog.New(logging.NewSlogHandler()))
	c := &MessagingComponents{transport: cfg.Queue.Transport, observer: observer}

	var err error
	switch cfg.Queue.Transport {
	case config.TransportNATS:
		err = c.initNATS(ctx, cfg, logger)
	case config.TransportKafka:
		err = c.initKafka(cfg, logger)
	case config.TransportMemory:
		c.initMemory(logger)
	default:
		err = fmt.Errorf("unsupported queue transport %q", cfg.Queue.Transport)
	}
	if err != nil {
		c.Close()
		return nil, err
	}

	if err := c.initPipeline(ctx, cfg, store, logger); err != nil {
		c.Close()
		return nil, err
	}

	logging.Info().
		Str("transport", c.transport).
		Str("topic", cfg.Queue.Topic).
		Str("dead_letter_topic", cfg.Queue.DeadLetterTopic).
		Int("max_retries", cfg.Queue.MaxRetries).
		Bool("dead_letter_sink", c.sinkRouter != nil).
		Bool("outbox", c.outbox != nil).
		Bool("user_cache", c.users != nil).
		Msg("Messaging initialized")
	return c, nil
}

func (c *MessagingComponents) initNATS(ctx context.Context, cfg *config.Config, logger watermill.LoggerAdapter) error {
	natsURL := cfg.NATS.URL

	if cfg.NATS.Embedded {
		serverCfg := eventprocessor.DefaultServerConfig()
		serverCfg.StoreDir = cfg.NATS.StoreDir
		serverCfg.JetStreamMaxMem = cfg.NATS.MaxMemory
		serverCfg.JetStreamMaxStore = cfg.NATS.MaxStore

		server, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return err
		}
		c.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}

	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	c.natsConn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := eventprocessor.DefaultStreamConfig()
	streamCfg.Name = cfg.NATS.StreamName
	streamCfg.MaxAge = time.Duration(cfg.NATS.StreamRetentionDays) * 24 * time.Hour
	streamCfg.Subjects = []string{cfg.Queue.Topic}
	if cfg.Queue.DeadLetterTopic != "" {
		streamCfg.Subjects = append(streamCfg.Subjects, cfg.Queue.DeadLetterTopic)
	}
	if c.wantsSink(cfg) {
		streamCfg.Subjects = append(streamCfg.Subjects, poisonTopic(cfg))
	}

	streamInitializer, err := eventprocessor.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		return fmt.Errorf("create stream initializer: %w", err)
	}
	c.streamInitializer = streamInitializer

	stream, err := streamInitializer.EnsureStream(ctx)
	if err != nil {
		return fmt.Errorf("ensure stream exists: %w", err)
	}
	streamInfo := stream.CachedInfo()
	logging.Info().
		Str("name", streamInfo.Config.Name).
		Strs("subjects", streamInfo.Config.Subjects).
		Dur("max_age", streamInfo.Config.MaxAge).
		Msg("JetStream stream ready")

	publisher, err := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(natsURL), logger)
	if err != nil {
		return err
	}
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
		eventprocessor.DefaultCircuitBreakerConfig("nats-publisher")))
	c.publisher = publisher

	subCfg := c.natsSubscriberConfig(cfg, natsURL, streamCfg.Name, "")
	source, err := eventprocessor.NewSubscriber(&subCfg, logger)
	if err != nil {
		return fmt.Errorf("create tweet subscriber: %w", err)
	}
	c.source = source

	if c.wantsSink(cfg) {
		sinkCfg := c.natsSubscriberConfig(cfg, natsURL, streamCfg.Name, "-dlq")
		sinkCfg.SubscribersCount = 1
		sinkSubscriber, err := eventprocessor.NewSubscriber(&sinkCfg, logger)
		if err != nil {
			return fmt.Errorf("create dead-letter subscriber: %w", err)
		}
		c.sinkSubscriber = sinkSubscriber
	}
	return nil
}

// natsSubscriberConfig returns a durable JetStream subscription. The
// dead-letter sink needs its own durable so it does not share the
// consumer's delivery cursor.
func (c *MessagingComponents) natsSubscriberConfig(cfg *config.Config, url, stream, suffix string) eventprocessor.SubscriberConfig {
	subCfg := eventprocessor.DefaultSubscriberConfig(url)
	subCfg.DurableName = cfg.NATS.DurableName + suffix
	subCfg.QueueGroup = cfg.NATS.QueueGroup + suffix
	subCfg.SubscribersCount = cfg.Queue.SubscribersCount
	subCfg.CloseTimeout = cfg.Queue.CloseTimeout
	subCfg.StreamName = stream
	return subCfg
}

func (c *MessagingComponents) initKafka(cfg *config.Config, logger watermill.LoggerAdapter) error {
	kafkaCfg := eventprocessor.DefaultKafkaConfig(cfg.Kafka.Brokers...)
	kafkaCfg.GroupID = cfg.Kafka.GroupID
	kafkaCfg.BatchTimeout = cfg.Kafka.BatchTimeout
	kafkaCfg.MaxInFlight = cfg.Queue.BatchSize

	publisher, err := eventprocessor.NewKafkaPublisher(kafkaCfg)
	if err != nil {
		return err
	}
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
		eventprocessor.DefaultCircuitBreakerConfig("kafka-publisher")))
	c.publisher = publisher

	source, err := eventprocessor.NewKafkaSubscriber(kafkaCfg, logger)
	if err != nil {
		return fmt.Errorf("create tweet subscriber: %w", err)
	}
	c.source = source

	if c.wantsSink(cfg) {
		sinkCfg := kafkaCfg
		sinkCfg.GroupID = kafkaCfg.GroupID + "-dlq"
		sinkSubscriber, err := eventprocessor.NewKafkaSubscriber(sinkCfg, logger)
		if err != nil {
			return fmt.Errorf("create dead-letter subscriber: %w", err)
		}
		c.sinkSubscriber = sinkSubscriber
	}

	logging.Info().Strs("brokers", kafkaCfg.Brokers).Str("group", kafkaCfg.GroupID).Msg("Kafka transport ready")
	return nil
}

// initMemory wires everything onto one in-process channel. Messages do not
// survive a restart.
func (c *MessagingComponents) initMemory(logger watermill.LoggerAdapter) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            256,
		BlockPublishUntilSubscriberAck: false,
	}, logger)

	// NewPublisherFrom only fails on a nil publisher
	publisher, _ := eventprocessor.NewPublisherFrom(pubSub, logger)
	c.publisher = publisher
	c.source = pubSub
	c.sinkSubscriber = pubSub

	logging.Warn().Msg("Using in-memory transport; queued tweets are lost on restart")
}

func (c *MessagingComponents) wantsSink(cfg *config.Config) bool {
	return cfg.Queue.PersistDeadLetters && cfg.Queue.DeadLetterTopic != ""
}

// poisonTopic parks dead-letter records the sink could not store after its
// retries, so one bad record cannot stall the sink.
func poisonTopic(cfg *config.Config) string {
	return cfg.Queue.DeadLetterTopic + ".poison"
}

func (c *MessagingComponents) initPipeline(ctx context.Context, cfg *config.Config, store Store, logger watermill.LoggerAdapter) error {
	queue, err := eventprocessor.NewTopicChannel(c.publisher, cfg.Queue.Topic)
	if err != nil {
		return err
	}
	c.queue = queue

	// Requeued retries go through the outbox too, so a transport outage
	// mid-batch does not lose them.
	var retry eventprocessor.Channel = queue
	if cfg.Outbox.Enabled {
		if err := c.initOutbox(ctx, &cfg.Outbox); err != nil {
			return err
		}
		retry = c.outbox
	}

	// An untyped nil disables dead-lettering; exhausted messages are dropped.
	var deadLetter eventprocessor.Channel
	if cfg.Queue.DeadLetterTopic != "" {
		dlq, err := eventprocessor.NewTopicChannel(c.publisher, cfg.Queue.DeadLetterTopic)
		if err != nil {
			return err
		}
		deadLetter = dlq
	}

	dispatcher, err := eventprocessor.NewRetryDispatcher(
		eventprocessor.RetryConfig{MaxRetries: cfg.Queue.MaxRetries}, retry, deadLetter)
	if err != nil {
		return fmt.Errorf("create retry dispatcher: %w", err)
	}

	var batchStore tweets.Store = store
	if cfg.Database.UserCacheSize > 0 {
		c.users = tweets.NewUserCache(cfg.Database.UserCacheSize, cfg.Database.UserCacheTTL)
		batchStore = tweets.NewCachedStore(store, c.users)
	}

	processor, err := eventprocessor.NewBatchProcessor(batchStore, dispatcher)
	if err != nil {
		return fmt.Errorf("create batch processor: %w", err)
	}
	if c.observer != nil {
		processor.WithObserver(c.observer)
	}

	consumer, err := eventprocessor.NewBatchConsumer(c.source, processor, eventprocessor.ConsumerConfig{
		Topic:             cfg.Queue.Topic,
		BatchSize:         cfg.Queue.BatchSize,
		FlushInterval:     cfg.Queue.FlushInterval,
		ThrottlePerSecond: cfg.Queue.ThrottlePerSecond,
	})
	if err != nil {
		return fmt.Errorf("create batch consumer: %w", err)
	}
	c.consumer = consumer

	if !c.wantsSink(cfg) || c.sinkSubscriber == nil {
		return nil
	}

	sink, err := eventprocessor.NewDeadLetterSink(store)
	if err != nil {
		return err
	}
	if c.observer != nil {
		sink.WithObserver(c.observer)
	}
	routerCfg := eventprocessor.DefaultRouterConfig()
	routerCfg.CloseTimeout = cfg.Queue.CloseTimeout
	routerCfg.PoisonQueueTopic = poisonTopic(cfg)
	router, err := eventprocessor.NewRouter(&routerCfg, c.publisher, logger)
	if err != nil {
		return fmt.Errorf("create dead-letter router: %w", err)
	}
	sink.Register(router, cfg.Queue.DeadLetterTopic, c.sinkSubscriber)
	c.sink = sink
	c.sinkRouter = router
	return nil
}

// initOutbox opens the BadgerDB outbox in front of the create-tweets topic
// and republishes whatever a previous run left pending.
func (c *MessagingComponents) initOutbox(ctx context.Context, cfg *config.OutboxConfig) error {
	w, err := wal.Open(wal.FromAppConfig(cfg))
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	c.outboxWAL = w
	c.outbox = wal.NewOutbox(w, c.queue)

	result, err := w.RecoverPending(ctx, c.outbox)
	if err != nil {
		return fmt.Errorf("recover outbox: %w", err)
	}
	logging.Info().
		Str("path", cfg.Path).
		Int("pending", result.TotalPending).
		Int("recovered", result.Recovered).
		Msg("Outbox ready")
	return nil
}

// Queue returns what the HTTP API enqueues on: the outbox when enabled,
// otherwise the create-tweets channel.
func (c *MessagingComponents) Queue() api.Enqueuer {
	if c.outbox != nil {
		return c.outbox
	}
	return c.queue
}

// Outbox returns the outbox, or nil when it is disabled.
func (c *MessagingComponents) Outbox() *wal.Outbox {
	return c.outbox
}

// UserCache returns the consumer's user cache, or nil when it is disabled.
func (c *MessagingComponents) UserCache() *tweets.UserCache {
	return c.users
}

// DeadLetterRouter returns the dead-letter sink router, or nil when dead
// letters are not persisted.
func (c *MessagingComponents) DeadLetterRouter() *eventprocessor.Router {
	return c.sinkRouter
}

// RegisterHealth adds every messaging component to checker.
func (c *MessagingComponents) RegisterHealth(checker *eventprocessor.HealthChecker) {
	checker.RegisterComponent("consumer", c.consumer)
	checker.RegisterComponent("publisher", c.publisher)
	if c.server != nil {
		checker.RegisterComponent("nats-server", c.server)
	}
	if c.streamInitializer != nil {
		checker.RegisterComponent("stream", c.streamInitializer)
	}
	if c.sinkRouter != nil {
		checker.RegisterComponent("dead-letter-sink", c.sinkRouter)
	}
	if c.outboxWAL != nil {
		checker.RegisterComponent("outbox", outboxHealth(c.outboxWAL))
	}
}

// outboxBacklogWarn is the pending-entry count above which the outbox
// reports degraded.
const outboxBacklogWarn = 1000

func outboxHealth(w *wal.BadgerWAL) eventprocessor.HealthFunc {
	return func(context.Context) eventprocessor.ComponentHealth {
		stats := w.Stats()
		h := eventprocessor.ComponentHealth{
			Healthy: true,
			Message: "outbox is draining",
			Details: map[string]interface{}{
				"pending":        stats.PendingCount,
				"confirmed":      stats.ConfirmedCount,
				"total_retries":  stats.TotalRetries,
				"db_size_bytes":  stats.DBSizeBytes,
				"max_retries":    w.Config().MaxRetries,
				"retry_interval": w.Config().RetryInterval.String(),
			},
		}
		if !stats.LastCompaction.IsZero() {
			h.Details["last_compaction"] = stats.LastCompaction.Format(time.RFC3339)
		}
		if stats.PendingCount > outboxBacklogWarn {
			h.Degraded = true
			h.Message = fmt.Sprintf("%d entries waiting for the transport", stats.PendingCount)
		}
		return h
	}
}

// Start begins consuming the create-tweets topic.
func (c *MessagingComponents) Start(ctx context.Context) error {
	if c == nil || c.consumer == nil {
		return nil
	}
	return c.consumer.Start(ctx)
}

// Shutdown stops the consumer, finishing the batch in hand. It gives up
// waiting when ctx expires; the consumer keeps draining in the background.
func (c *MessagingComponents) Shutdown(ctx context.Context) {
	if c == nil || c.consumer == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		c.consumer.Stop()
		close(done)
	}()

	select {
	case <-done:
		stats := c.consumer.Stats()
		logging.Info().
			Int64("received", stats.MessagesReceived).
			Int64("processed", stats.MessagesProcessed).
			Int64("requeued", stats.MessagesRequeued).
			Int64("dead_lettered", stats.MessagesDeadLettered).
			Msg("Batch consumer shut down")
	case <-ctx.Done():
		logging.Warn().Err(ctx.Err()).Msg("Batch consumer did not stop in time")
	}
}

// IsRunning reports whether the consumer loop is active.
func (c *MessagingComponents) IsRunning() bool {
	return c != nil && c.consumer != nil && c.consumer.IsRunning()
}

// Done is closed when the consumer loop exits.
func (c *MessagingComponents) Done() <-chan struct{} {
	if c == nil || c.consumer == nil {
		return nil
	}
	return c.consumer.Done()
}

// Close releases the transport: subscribers, outbox, publisher, NATS
// connection and embedded server, in that order. Safe to call more than once.
func (c *MessagingComponents) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		if c.sink != nil {
			logging.Info().
				Int64("persisted", c.sink.Persisted()).
				Int64("rejected", c.sink.Rejected()).
				Msg("Dead-letter sink stopped")
		}
		if c.sinkSubscriber != nil && c.sinkSubscriber != c.source {
			if err := c.sinkSubscriber.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing dead-letter subscriber")
			}
		}
		if c.source != nil {
			if err := c.source.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing tweet subscriber")
			}
		}
		if c.outboxWAL != nil {
			if err := c.outboxWAL.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing outbox")
			}
		}
		if c.publisher != nil {
			if err := c.publisher.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing publisher")
			}
		}
		if c.natsConn != nil {
			if err := c.natsConn.Drain(); err != nil {
				c.natsConn.Close()
			}
		}
		if c.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), transportCloseTimeout)
			if err := c.server.Shutdown(ctx); err != nil {
				logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
			}
			cancel()
		}
		logging.Info().Str("transport", c.transport).Msg("Messaging transport closed")
	})
}
