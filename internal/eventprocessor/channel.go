// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
)

// Channel is a one-way send to a queue destination.
type Channel interface {
	Send(ctx context.Context, payload interface{}) error
}

// TopicChannel sends JSON payloads to a single topic of any Watermill publisher.
type TopicChannel struct {
	publisher  message.Publisher
	topic      string
	serializer *Serializer
}

// NewTopicChannel creates a channel publishing to topic.
func NewTopicChannel(publisher message.Publisher, topic string) (*TopicChannel, error) {
	if publisher == nil {
		return nil, ErrNilPublisher
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidConfig)
	}
	return &TopicChannel{
		publisher:  publisher,
		topic:      topic,
		serializer: NewSerializer(),
	}, nil
}

// Topic returns the destination topic.
func (c *TopicChannel) Topic() string {
	return c.topic
}

// Send marshals payload and publishes it as a new message.
// The correlation id from ctx, if any, travels in the message metadata.
func (c *TopicChannel) Send(ctx context.Context, payload interface{}) error {
	_, err := c.Enqueue(ctx, payload)
	return err
}

// Enqueue is Send that also returns the id of the published message.
func (c *TopicChannel) Enqueue(ctx context.Context, payload interface{}) (string, error) {
	data, err := c.serializer.Marshal(payload)
	if err != nil {
		return "", err
	}

	id := watermill.NewUUID()
	if err := c.Publish(ctx, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Publish sends an already encoded body as message id. The outbox uses it
// to republish an entry under the id the API returned for it.
func (c *TopicChannel) Publish(ctx context.Context, id string, data []byte) error {
	msg := message.NewMessage(id, data)
	msg.SetContext(ctx)
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		middleware.SetCorrelationID(cid, msg)
	}

	err := c.publisher.Publish(c.topic, msg)
	metrics.RecordQueuePublish(c.topic, err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", c.topic, err)
	}
	return nil
}
