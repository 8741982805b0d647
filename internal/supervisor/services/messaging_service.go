// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMessagingStopped is returned when the consume loop exits on its own,
// typically because the subscription was closed by the broker.
var ErrMessagingStopped = errors.New("messaging components stopped unexpectedly")

// MessagingRunner matches the lifecycle of the queue consumer components.
//
// Satisfied by *MessagingComponents from cmd/server/messaging_init.go.
// Done may return nil when the runner cannot report an early exit.
type MessagingRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
	Done() <-chan struct{}
}

// MessagingComponentsService wraps the batch consumer and its transport as a
// supervised service.
//
//  1. Calls Start(ctx) to subscribe and begin consuming
//  2. Waits for context cancellation or an early exit of the consume loop
//  3. Calls Shutdown with a fresh context bounded by shutdownTimeout
type MessagingComponentsService struct {
	components      MessagingRunner
	shutdownTimeout time.Duration
	name            string
}

// NewMessagingComponentsService creates a messaging service wrapper. A
// non-positive timeout selects 10 seconds.
func NewMessagingComponentsService(components MessagingRunner, shutdownTimeout time.Duration) *MessagingComponentsService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &MessagingComponentsService{
		components:      components,
		shutdownTimeout: shutdownTimeout,
		name:            "messaging-components",
	}
}

// Serve implements suture.Service. A failed Start or an unexpected exit of
// the consume loop is returned as an error so suture restarts the service.
func (s *MessagingComponentsService) Serve(ctx context.Context) error {
	if err := s.components.Start(ctx); err != nil {
		return fmt.Errorf("messaging components start failed: %w", err)
	}

	var result error
	select {
	case <-ctx.Done():
		result = ctx.Err()
	case <-s.components.Done():
		result = ErrMessagingStopped
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.components.Shutdown(shutdownCtx)

	return result
}

// String implements fmt.Stringer for logging.
func (s *MessagingComponentsService) String() string {
	return s.name
}
