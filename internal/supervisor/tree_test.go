// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeService runs until cancelled, failing the first failFirst calls.
type fakeService struct {
	name      string
	failFirst int32
	serves    atomic.Int32
	returned  atomic.Int32
}

func (f *fakeService) Serve(ctx context.Context) error {
	n := f.serves.Add(1)
	defer f.returned.Add(1)

	if n <= f.failFirst {
		return errors.New("consumer connection lost")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeService) String() string { return f.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTreeConfig_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(nil, TreeConfig{FailureBackoff: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	if tree.logger == nil {
		t.Error("nil logger should fall back to slog.Default")
	}
	if tree.Root() == nil {
		t.Fatal("Root() = nil")
	}

	want := DefaultTreeConfig()
	want.FailureBackoff = time.Second
	if tree.config != want {
		t.Errorf("config = %+v, want %+v", tree.config, want)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tests := []struct {
		layer string
		add   func(*SupervisorTree, suture.Service) suture.ServiceToken
	}{
		{"data", (*SupervisorTree).AddDataService},
		{"messaging", (*SupervisorTree).AddMessagingService},
		{"api", (*SupervisorTree).AddAPIService},
	}

	for _, tt := range tests {
		t.Run(tt.layer, func(t *testing.T) {
			tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
			svc := &fakeService{name: tt.layer + "-svc"}
			tt.add(tree, svc)

			ctx, cancel := context.WithCancel(context.Background())
			errCh := tree.ServeBackground(ctx)
			waitFor(t, func() bool { return svc.serves.Load() == 1 })

			cancel()
			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, context.Canceled) {
					t.Errorf("Serve() = %v", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("tree did not stop")
			}
			if svc.returned.Load() != 1 {
				t.Errorf("service returned %d times, want 1", svc.returned.Load())
			}
			if n := tree.LogUnstoppedServices(); n != 0 {
				t.Errorf("unstopped services = %d, want 0", n)
			}
		})
	}
}

func TestSupervisorTree_RestartsFailedConsumer(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	consumer := &fakeService{name: "messaging-components", failFirst: 2}
	server := &fakeService{name: "http-server"}
	tree.AddMessagingService(consumer)
	tree.AddAPIService(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	waitFor(t, func() bool { return consumer.serves.Load() >= 3 })
	// The API layer is not restarted by a messaging failure.
	if got := server.serves.Load(); got != 1 {
		t.Errorf("http-server started %d times, want 1", got)
	}
}

func TestSupervisorTree_RemoveMessagingService(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	feed := &fakeService{name: "feed-hub"}
	token := tree.AddMessagingService(feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)
	waitFor(t, func() bool { return feed.serves.Load() == 1 })

	if err := tree.RemoveMessagingService(token); err != nil {
		t.Fatalf("RemoveMessagingService: %v", err)
	}
	waitFor(t, func() bool { return feed.returned.Load() == 1 })
}
