// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

//go:build integration

package testinfra

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

var (
	dockerOnce sync.Once
	dockerOK   bool
)

// SkipIfNoDocker skips t when no Docker daemon answers. The probe runs once
// per test binary.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	dockerOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dockerOK = exec.CommandContext(ctx, "docker", "info").Run() == nil
	})
	if !dockerOK {
		t.Skip("docker not available, skipping container test")
	}
}

// CleanupContainer terminates c, logging instead of failing on error so it
// can run from t.Cleanup after the test has already failed.
func CleanupContainer(t *testing.T, ctx context.Context, c testcontainers.Container) {
	t.Helper()

	if c == nil {
		return
	}
	if err := c.Terminate(context.WithoutCancel(ctx)); err != nil {
		t.Logf("terminate container %s: %v", c.GetContainerID(), err)
	}
}
