// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package services

import (
	"context"
	"fmt"
)

// RouterRunner matches the watermill router wrapper in eventprocessor. Run
// blocks until ctx is canceled and closes the router on the way out.
type RouterRunner interface {
	Run(ctx context.Context) error
}

// RouterService runs a message router under supervision. It is used for the
// dead-letter sink, which persists records from the DLQ topic.
type RouterService struct {
	router RouterRunner
	name   string
}

// NewRouterService creates a router service identified by name in logs.
func NewRouterService(router RouterRunner, name string) *RouterService {
	if name == "" {
		name = "message-router"
	}
	return &RouterService{router: router, name: name}
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	// the router returned without being canceled; let suture restart it
	return fmt.Errorf("%s: stopped unexpectedly", s.name)
}

// String implements fmt.Stringer for logging.
func (s *RouterService) String() string {
	return s.name
}
