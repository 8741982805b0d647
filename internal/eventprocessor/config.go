// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"fmt"
	"time"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int // -1 picks a random free port
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   64 << 20, // 64MB
		JetStreamMaxStore: 1 << 30,  // 1GB
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration

	// StreamName binds the subscriber to an existing stream instead of
	// auto-provisioning one named after the topic.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "tweet-writer",
		QueueGroup:       "tweet-writers",
		SubscribersCount: 10,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// StreamConfig defines the tweet stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production stream configuration.
// Subjects cover the create topic and its dead-letter topic.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "TWEETS",
		Subjects:        []string{"tweets.>"},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        1 << 30, // 1GB
		MaxMsgs:         -1,      // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// RetryConfig holds the retry budget of the create-tweet pipeline.
type RetryConfig struct {
	// MaxRetries is the number of re-enqueues a message gets before it is
	// dead-lettered. Zero dead-letters on the first failure.
	MaxRetries int
}

// DefaultRetryConfig returns the default retry budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3}
}

// Validate checks the retry budget.
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	return nil
}

// ConsumerConfig holds configuration for the batch consumer.
type ConsumerConfig struct {
	// Topic is the queue topic to consume (default: "tweets.create").
	Topic string

	// BatchSize is the maximum number of messages handed to one batch.
	BatchSize int

	// FlushInterval is the longest a partial batch waits before it is processed.
	FlushInterval time.Duration

	// ThrottlePerSecond caps consumed messages per second (0 = unlimited).
	ThrottlePerSecond int

	// DrainTimeout bounds how long Stop waits for buffered deliveries.
	DrainTimeout time.Duration
}

// DefaultConsumerConfig returns a ConsumerConfig with sensible defaults.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Topic:             "tweets.create",
		BatchSize:         10,
		FlushInterval:     time.Second,
		ThrottlePerSecond: 0,
		DrainTimeout:      100 * time.Millisecond,
	}
}

// Validate checks the consumer configuration.
func (c ConsumerConfig) Validate() error {
	if c.Topic == "" {
		return fmt.Errorf("%w: consumer topic is required", ErrInvalidConfig)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be >= 1, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("%w: flush interval must be positive", ErrInvalidConfig)
	}
	if c.ThrottlePerSecond < 0 {
		return fmt.Errorf("%w: throttle must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// KafkaConfig holds Kafka publisher and subscriber settings.
type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	BatchTimeout time.Duration // Writer flush deadline
	MinBytes     int
	MaxBytes     int
	MaxWait      time.Duration

	// MaxInFlight bounds the deliveries a subscription holds unacked. Set it
	// to the consumer batch size so a batch can fill.
	MaxInFlight int
}

// DefaultKafkaConfig returns defaults for a local broker.
func DefaultKafkaConfig(brokers ...string) KafkaConfig {
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	return KafkaConfig{
		Brokers:      brokers,
		GroupID:      "tweet-writers",
		BatchTimeout: 10 * time.Millisecond,
		MinBytes:     1,
		MaxBytes:     10 << 20, // 10MB
		MaxWait:      500 * time.Millisecond,
		MaxInFlight:  10,
	}
}

// RouterConfig holds configuration for the Watermill Router used by the
// dead-letter sink.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handled messages (0 = disabled).
	ThrottlePerSecond int64

	// PoisonQueueTopic receives records the sink could not store. Empty disables it.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RetryMultiplier:      2.0,
		ThrottlePerSecond:    0,
		PoisonQueueTopic:     "",
	}
}
