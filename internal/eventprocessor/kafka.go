// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/segmentio/kafka-go"
	gobreaker "github.com/sony/gobreaker/v2"
)

// uuidHeader carries the Watermill message UUID through Kafka headers.
const uuidHeader = "_watermill_message_uuid"

// KafkaPublisher publishes Watermill messages to Kafka topics.
// It satisfies message.Publisher, so it can back a TopicChannel.
type KafkaPublisher struct {
	writer         *kafka.Writer
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
}

// NewKafkaPublisher creates a synchronous publisher; Publish returns once
// every broker replica acknowledged the write.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: at least one kafka broker is required", ErrInvalidConfig)
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           cfg.BatchTimeout,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *KafkaPublisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Publish writes msgs to topic. The first message's context bounds the write.
func (p *KafkaPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if len(msgs) == 0 {
		return nil
	}

	out := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, toKafkaMessage(topic, msg))
	}

	ctx := msgs[0].Context()
	return ExecuteWithBreaker(p.circuitBreaker, func() error {
		return p.writer.WriteMessages(ctx, out...)
	})
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// HealthCheck implements HealthCheckable for KafkaPublisher.
func (p *KafkaPublisher) HealthCheck(ctx context.Context) ComponentHealth {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ComponentHealth{Healthy: false, Error: "publisher is closed"}
	}

	stats := p.writer.Stats()
	details := map[string]interface{}{
		"writes":   stats.Writes,
		"messages": stats.Messages,
		"errors":   stats.Errors,
	}
	if p.circuitBreaker != nil && p.circuitBreaker.State() == gobreaker.StateOpen {
		return ComponentHealth{Healthy: false, Error: "circuit breaker is open", Details: details}
	}
	return ComponentHealth{Healthy: true, Message: "publisher is operational", Details: details}
}

func toKafkaMessage(topic string, msg *message.Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Metadata)+1)
	headers = append(headers, kafka.Header{Key: uuidHeader, Value: []byte(msg.UUID)})
	for k, v := range msg.Metadata {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.UUID),
		Value:   msg.Payload,
		Headers: headers,
	}
}

func fromKafkaMessage(km kafka.Message) *message.Message {
	uuid := ""
	metadata := make(message.Metadata, len(km.Headers))
	for _, h := range km.Headers {
		if h.Key == uuidHeader {
			uuid = string(h.Value)
			continue
		}
		metadata.Set(h.Key, string(h.Value))
	}
	if uuid == "" {
		uuid = watermill.NewUUID()
	}
	msg := message.NewMessage(uuid, km.Value)
	msg.Metadata = metadata
	return msg
}

// kafkaReader is the part of *kafka.Reader the subscriber uses.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSubscriber consumes a topic through a consumer group.
//
// Up to MaxInFlight fetched messages are delivered at once. Offsets are
// committed in fetch order, each only after it and every earlier message
// were acked. A nacked message is redelivered after NackResendSleep.
type KafkaSubscriber struct {
	config KafkaConfig
	logger watermill.LoggerAdapter

	// NackResendSleep is the pause before redelivering a nacked message.
	NackResendSleep time.Duration

	newReader func(topic string) kafkaReader

	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	readers []kafkaReader
	wg      sync.WaitGroup
}

// NewKafkaSubscriber creates a consumer-group subscriber.
func NewKafkaSubscriber(cfg KafkaConfig, logger watermill.LoggerAdapter) (*KafkaSubscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: at least one kafka broker is required", ErrInvalidConfig)
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("%w: kafka consumer group is required", ErrInvalidConfig)
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	s := &KafkaSubscriber{
		config:          cfg,
		logger:          logger,
		NackResendSleep: 100 * time.Millisecond,
		closing:         make(chan struct{}),
	}
	s.newReader = func(topic string) kafkaReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
			MaxWait:  cfg.MaxWait,
		})
	}
	return s, nil
}

// Subscribe starts a reader for topic. The returned channel is closed when
// ctx is canceled or the subscriber is closed.
func (s *KafkaSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSubscriberClosed
	}

	reader := s.newReader(topic)
	s.readers = append(s.readers, reader)

	out := make(chan *message.Message)
	s.wg.Add(1)
	go s.consume(ctx, topic, reader, out)

	return out, nil
}

// pendingCommit is a fetched message waiting for its delivery to finish.
type pendingCommit struct {
	km   kafka.Message
	done chan bool // true once acked, false on shutdown
}

func (s *KafkaSubscriber) consume(ctx context.Context, topic string, reader kafkaReader, out chan<- *message.Message) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		close(out)
	}()
	go func() {
		select {
		case <-s.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	fields := watermill.LogFields{"topic": topic, "group": s.config.GroupID}

	// The committer holds one entry while the window holds the rest.
	window := make(chan *pendingCommit, s.config.MaxInFlight-1)
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		s.commitInOrder(ctx, reader, window, fields)
	}()

	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("Kafka fetch failed", err, fields)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		p := &pendingCommit{km: km, done: make(chan bool, 1)}
		select {
		case window <- p:
		case <-ctx.Done():
			return
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			p.done <- s.deliver(ctx, p.km, out)
		}()
	}
}

// commitInOrder commits offsets in fetch order as deliveries are acked.
func (s *KafkaSubscriber) commitInOrder(ctx context.Context, reader kafkaReader, window <-chan *pendingCommit, fields watermill.LogFields) {
	for {
		var p *pendingCommit
		select {
		case p = <-window:
		case <-ctx.Done():
			return
		}
		if acked := <-p.done; !acked {
			return
		}
		if err := reader.CommitMessages(context.WithoutCancel(ctx), p.km); err != nil {
			s.logger.Error("Kafka commit failed", err, fields)
		}
	}
}

// deliver hands km downstream until it is acked. Returns false on shutdown.
func (s *KafkaSubscriber) deliver(ctx context.Context, km kafka.Message, out chan<- *message.Message) bool {
	for {
		msg := fromKafkaMessage(km)
		msg.SetContext(ctx)

		select {
		case out <- msg:
		case <-ctx.Done():
			return false
		}

		select {
		case <-msg.Acked():
			return true
		case <-msg.Nacked():
			select {
			case <-time.After(s.NackResendSleep):
			case <-ctx.Done():
				return false
			}
		case <-ctx.Done():
			return false
		}
	}
}

// Close stops all subscriptions and closes their readers.
func (s *KafkaSubscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closing)
	readers := s.readers
	s.mu.Unlock()

	s.wg.Wait()

	var errs []error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
