// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package services

import (
	"context"
	"fmt"
)

// StartStopper matches the lifecycle of the background loops.
//
// Satisfied by *wal.RetryLoop, *wal.Compactor and *backup.Manager.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// LoopService adapts a Start/Stop background loop to suture's Serve
// pattern: it starts the loop, waits for cancellation and then stops it,
// which blocks until the loop goroutine has exited.
//
// Example usage:
//
//	retryLoop := wal.NewRetryLoop(w, outbox)
//	tree.AddDataService(services.NewOutboxRetryService(retryLoop))
type LoopService struct {
	loop StartStopper
	name string
}

// NewOutboxRetryService supervises the outbox retry loop.
func NewOutboxRetryService(loop StartStopper) *LoopService {
	return &LoopService{loop: loop, name: "outbox-retry-loop"}
}

// NewOutboxCompactorService supervises the outbox compactor.
func NewOutboxCompactorService(compactor StartStopper) *LoopService {
	return &LoopService{loop: compactor, name: "outbox-compactor"}
}

// NewBackupSchedulerService supervises the periodic backup scheduler.
func NewBackupSchedulerService(scheduler StartStopper) *LoopService {
	return &LoopService{loop: scheduler, name: "backup-scheduler"}
}

// Serve implements suture.Service. A failed Start is returned so suture
// restarts the service with backoff.
func (s *LoopService) Serve(ctx context.Context) error {
	if err := s.loop.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()
	s.loop.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *LoopService) String() string {
	return s.name
}
