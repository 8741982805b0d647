// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
)

// MessageSource defines the interface for receiving messages.
// Every Watermill subscriber satisfies it.
type MessageSource interface {
	// Subscribe subscribes to a topic and returns a channel of messages.
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	// Close closes the message source.
	Close() error
}

// ConsumerStats holds runtime statistics for monitoring.
type ConsumerStats struct {
	MessagesReceived     int64     // Total messages received
	MessagesProcessed    int64     // Messages that produced a tweet
	MessagesRequeued     int64     // Failures sent back for another attempt
	MessagesDeadLettered int64     // Failures sent to the dead-letter topic
	MessagesDropped      int64     // Failures with no dead-letter topic configured
	DispatchFailures     int64     // Failures whose retry could not be sent
	BatchesProcessed     int64     // Batches handed to the processor
	LastMessageTime      time.Time // Time of last received message
}

// BatchConsumer pulls create-tweet messages from a MessageSource, groups them
// into batches by size or flush interval, and hands each batch to a
// BatchProcessor. One batch runs at a time.
type BatchConsumer struct {
	source    MessageSource
	processor *BatchProcessor
	config    ConsumerConfig
	limiter   *rate.Limiter

	// State
	mu      sync.Mutex
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	cancel  context.CancelFunc

	// Metrics
	messagesReceived     atomic.Int64
	messagesProcessed    atomic.Int64
	messagesRequeued     atomic.Int64
	messagesDeadLettered atomic.Int64
	messagesDropped      atomic.Int64
	dispatchFailures     atomic.Int64
	batchesProcessed     atomic.Int64
	lastMessageTime      atomic.Value // stores time.Time
}

// NewBatchConsumer creates a new batch consumer.
func NewBatchConsumer(source MessageSource, processor *BatchProcessor, cfg ConsumerConfig) (*BatchConsumer, error) {
	if source == nil {
		return nil, ErrNilSubscriber
	}
	if processor == nil {
		return nil, fmt.Errorf("%w: batch processor is required", ErrInvalidConfig)
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultConsumerConfig().DrainTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &BatchConsumer{
		source:    source,
		processor: processor,
		config:    cfg,
	}
	if cfg.ThrottlePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.ThrottlePerSecond), cfg.ThrottlePerSecond)
	}
	c.lastMessageTime.Store(time.Time{})

	return c, nil
}

// Start subscribes to the configured topic and begins consuming.
// Returns immediately - consumption happens in a goroutine.
func (c *BatchConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return nil
	}
	if c.cancel != nil {
		// previous loop ended on its own (closed source)
		c.cancel()
	}

	subCtx, cancel := context.WithCancel(ctx)
	messages, err := c.source.Subscribe(subCtx, c.config.Topic)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to %s: %w", c.config.Topic, err)
	}

	c.cancel = cancel
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.running.Store(true)

	go c.consumeLoop(ctx, messages, c.stopCh, c.doneCh)

	logging.Info().
		Str("topic", c.config.Topic).
		Int("batch_size", c.config.BatchSize).
		Dur("flush_interval", c.config.FlushInterval).
		Int("throttle_per_second", c.config.ThrottlePerSecond).
		Msg("Batch consumer started")
	return nil
}

// Stop finishes the batch in hand, drains buffered deliveries and
// unsubscribes. Safe to call more than once.
func (c *BatchConsumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopCh == nil {
		return
	}

	close(c.stopCh)
	<-c.doneCh
	c.cancel()
	c.stopCh = nil

	logging.Info().Msg("Batch consumer stopped")
}

// Done returns a channel closed when the consume loop exits, or nil when
// the consumer was never started.
func (c *BatchConsumer) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doneCh
}

// IsRunning returns whether the consumer is currently running.
func (c *BatchConsumer) IsRunning() bool {
	return c.running.Load()
}

// Stats returns current runtime statistics.
func (c *BatchConsumer) Stats() ConsumerStats {
	var lastTime time.Time
	if t, ok := c.lastMessageTime.Load().(time.Time); ok {
		lastTime = t
	}
	return ConsumerStats{
		MessagesReceived:     c.messagesReceived.Load(),
		MessagesProcessed:    c.messagesProcessed.Load(),
		MessagesRequeued:     c.messagesRequeued.Load(),
		MessagesDeadLettered: c.messagesDeadLettered.Load(),
		MessagesDropped:      c.messagesDropped.Load(),
		DispatchFailures:     c.dispatchFailures.Load(),
		BatchesProcessed:     c.batchesProcessed.Load(),
		LastMessageTime:      lastTime,
	}
}

// consumeLoop collects deliveries into batches. A batch is processed when it
// reaches BatchSize or when the flush ticker fires with a partial batch.
func (c *BatchConsumer) consumeLoop(ctx context.Context, messages <-chan *message.Message, stopCh, doneCh chan struct{}) {
	defer func() {
		c.running.Store(false)
		close(doneCh)
	}()

	ticker := time.NewTicker(c.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*message.Message, 0, c.config.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		c.processBatch(ctx, batch)
		batch = make([]*message.Message, 0, c.config.BatchSize)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			c.drainMessages(ctx, messages)
			return
		case <-stopCh:
			flush()
			c.drainMessages(ctx, messages)
			return
		case msg, ok := <-messages:
			if !ok {
				flush()
				return
			}
			c.receive(ctx, msg)
			batch = append(batch, msg)
			if len(batch) >= c.config.BatchSize {
				flush()
				ticker.Reset(c.config.FlushInterval)
			}
		case <-ticker.C:
			flush()
		}
	}
}

// drainMessages processes deliveries already waiting in the channel so they
// are acked before shutdown. Bounded by DrainTimeout.
func (c *BatchConsumer) drainMessages(ctx context.Context, messages <-chan *message.Message) {
	deadline := time.After(c.config.DrainTimeout)
	var drained []*message.Message

	defer func() {
		if len(drained) > 0 {
			c.processBatch(ctx, drained)
			logging.Info().Int("count", len(drained)).Msg("Batch consumer drained messages during shutdown")
		}
	}()

	for {
		select {
		case <-deadline:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.receive(ctx, msg)
			drained = append(drained, msg)
		default:
			return
		}
	}
}

func (c *BatchConsumer) receive(ctx context.Context, msg *message.Message) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			logging.Debug().Err(err).Msg("Throttle wait interrupted")
		}
	}
	c.messagesReceived.Add(1)
	c.lastMessageTime.Store(time.Now())
	metrics.RecordQueueConsume(c.config.Topic)
}

func (c *BatchConsumer) processBatch(ctx context.Context, batch []*message.Message) {
	result := c.processor.ProcessBatch(ctx, batch)

	c.batchesProcessed.Add(1)
	c.messagesProcessed.Add(int64(result.Succeeded))
	c.messagesRequeued.Add(int64(result.Requeued))
	c.messagesDeadLettered.Add(int64(result.DeadLettered))
	c.messagesDropped.Add(int64(result.Dropped))
	c.dispatchFailures.Add(int64(result.DispatchFailures))
}
