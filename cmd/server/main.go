// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/tomtom215/tweetqueue/internal/api"
	"github.com/tomtom215/tweetqueue/internal/audit"
	"github.com/tomtom215/tweetqueue/internal/auth"
	"github.com/tomtom215/tweetqueue/internal/authz"
	"github.com/tomtom215/tweetqueue/internal/backup"
	"github.com/tomtom215/tweetqueue/internal/config"
	"github.com/tomtom215/tweetqueue/internal/eventprocessor"
	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
	"github.com/tomtom215/tweetqueue/internal/supervisor"
	"github.com/tomtom215/tweetqueue/internal/supervisor/services"
	"github.com/tomtom215/tweetqueue/internal/wal"
	"github.com/tomtom215/tweetqueue/internal/websocket"
)

// httpShutdownTimeout bounds the drain of in-flight HTTP requests.
const httpShutdownTimeout = 10 * time.Second

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component, serves until SIGINT or SIGTERM and tears the
// transport and store down after the supervisor tree has stopped.
func run(cfg *config.Config) error {
	metrics.SetAppInfo(version, runtime.Version())
	logging.Info().
		Str("version", version).
		Str("transport", cfg.Queue.Transport).
		Str("database_driver", cfg.Database.Driver).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting tweetqueue with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore(store)

	// The hub must be an untyped nil observer when the feed is off.
	var (
		hub      *websocket.Hub
		observer eventprocessor.Observer
	)
	if cfg.Feed.Enabled {
		hub = websocket.NewHub(cfg.Feed.MaxClients)
		observer = hub
	}

	messaging, err := InitMessaging(ctx, cfg, store, observer)
	if err != nil {
		return err
	}
	defer messaging.Close()

	healthChecker := eventprocessor.NewHealthChecker(eventprocessor.DefaultHealthConfig())
	healthChecker.RegisterComponent("store", eventprocessor.PingHealth{Pinger: store})
	messaging.RegisterHealth(healthChecker)
	if hub != nil {
		healthChecker.RegisterComponent("feed", eventprocessor.HealthFunc(func(context.Context) eventprocessor.ComponentHealth {
			return eventprocessor.ComponentHealth{
				Healthy: true,
				Details: map[string]interface{}{
					"clients": hub.GetClientCount(),
					"dropped": hub.Dropped(),
				},
			}
		}))
	}

	handler, err := api.NewHandler(store, messaging.Queue(), healthChecker)
	if err != nil {
		return err
	}
	if hub != nil {
		handler.WithFeed(hub, cfg.Server.CORSOrigins)
	}
	var auditLog *audit.Logger
	if cfg.Auth.Enabled() {
		svc, err := auth.NewService(&cfg.Auth, auth.DefaultLockoutConfig())
		if err != nil {
			return fmt.Errorf("init auth: %w", err)
		}
		handler.WithAuth(svc, auth.RequireToken(svc.JWT()))

		auditLog = audit.NewLogger(nil, audit.FromAppConfig(&cfg.Audit))
		defer auditLog.Close()
		handler.WithAudit(auditLog)

		authzCfg := authz.DefaultEnforcerConfig()
		authzCfg.PolicyPath = cfg.Auth.PolicyPath
		enforcer, err := authz.NewEnforcer(authzCfg)
		if err != nil {
			return fmt.Errorf("init authz: %w", err)
		}
		defer enforcer.Close()
		handler.WithAuthz(enforcer)
		logging.Info().Str("admin", cfg.Auth.AdminUsername).Msg("Admin routes require a bearer token")
	}
	var backups *backup.Manager
	if cfg.Backup.Enabled {
		src, ok := store.(backup.Source)
		if !ok {
			return fmt.Errorf("backups need the duckdb store, have %T", store)
		}
		backups, err = backup.NewManager(backup.FromAppConfig(&cfg.Backup), src)
		if err != nil {
			return fmt.Errorf("init backups: %w", err)
		}
		handler.WithBackups(backups)
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(cfg.Server)))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(slog.New(logging.NewSlogHandler()), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Queue.CloseTimeout,
	})
	if err != nil {
		return err
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	if dlqRouter := messaging.DeadLetterRouter(); dlqRouter != nil {
		tree.AddDataService(services.NewRouterService(dlqRouter, "dlq-sink"))
		logging.Info().Str("topic", cfg.Queue.DeadLetterTopic).Msg("Dead-letter sink added to supervisor tree")
	}

	if outbox := messaging.Outbox(); outbox != nil {
		tree.AddDataService(services.NewOutboxRetryService(wal.NewRetryLoop(outbox.WAL(), outbox)))
		tree.AddDataService(services.NewOutboxCompactorService(wal.NewCompactor(outbox.WAL())))
		logging.Info().Str("path", cfg.Outbox.Path).Msg("Outbox retry loop and compactor added to supervisor tree")
	}

	if auditLog != nil {
		tree.AddDataService(services.NewAuditCleanupService(auditLog))
	}

	if backups != nil {
		tree.AddDataService(services.NewBackupSchedulerService(backups))
		logging.Info().
			Str("dir", cfg.Backup.Dir).
			Dur("interval", cfg.Backup.Interval).
			Int("retain", cfg.Backup.Retain).
			Msg("Backup scheduler added to supervisor tree")
	}

	tree.AddMessagingService(services.NewMessagingComponentsService(messaging, cfg.Queue.CloseTimeout))
	logging.Info().Str("topic", cfg.Queue.Topic).Msg("Batch consumer added to supervisor tree")

	if hub != nil {
		tree.AddMessagingService(services.NewFeedHubService(hub))
		logging.Info().Int("max_clients", cfg.Feed.MaxClients).Msg("Live feed hub added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, httpShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	tree.LogUnstoppedServices()
	return nil
}

// hashPassword reads a password from stdin and prints the bcrypt hash to
// use as ADMIN_PASSWORD_HASH.
func hashPassword() error {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("password must not be empty")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
