// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/tweetqueue/internal/config"
	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/tweets"
)

// testDBSemaphore serializes DuckDB use across tests; concurrent CGO
// connections from many tests can stall under CI load.
var testDBSemaphore = make(chan struct{}, 1)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

// setupTestDB creates a new in-memory test database. The semaphore is held
// until the test completes.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Driver:       config.DriverDuckDB,
		Path:         ":memory:",
		MaxMemory:    "256MB",
		MaxConns:     4,
		QueryTimeout: 10 * time.Second,
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	db.now = func() time.Time { return fixedNow }
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return db
}

func mustCreateUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()
	user, err := db.CreateUser(context.Background(), username)
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return user
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
	_, err := New(&config.DatabaseConfig{Driver: config.DriverPostgres, Path: ":memory:"})
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestConnectionString(t *testing.T) {
	got := connectionString(&config.DatabaseConfig{Path: "/data/t.duckdb", MaxMemory: "1GB", Threads: 4})
	for _, want := range []string{"/data/t.duckdb?", "access_mode=read_write", "max_memory=1GB", "threads=4", "autoload_known_extensions=false"} {
		if !strings.Contains(got, want) {
			t.Errorf("connection string %q missing %q", got, want)
		}
	}
	if strings.Contains(connectionString(&config.DatabaseConfig{Path: ":memory:"}), "threads=") {
		t.Error("threads should be omitted when zero")
	}
}

func TestMigrations_AppliedOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion: %v", err)
	}
	if want := len(Migrations()); version != want {
		t.Errorf("schema version = %d, want %d", version, want)
	}

	if err := db.runVersionedMigrations(); err != nil {
		t.Fatalf("second run: %v", err)
	}
	history, err := db.GetMigrationHistory(ctx)
	if err != nil {
		t.Fatalf("GetMigrationHistory: %v", err)
	}
	if len(history) != len(Migrations()) {
		t.Errorf("history has %d entries, want %d", len(history), len(Migrations()))
	}
	for i, m := range history {
		if m.Version != i+1 {
			t.Errorf("history[%d].Version = %d, want %d", i, m.Version, i+1)
		}
	}
}

func TestNew_FileDatabasePersists(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	cfg := &config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "nested", "tweets.duckdb"),
		MaxConns:     2,
		QueryTimeout: 10 * time.Second,
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := db.CreateUser(context.Background(), "alice"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.FindByUsername(context.Background(), "alice"); err != nil {
		t.Errorf("expected user to survive reopen, got %v", err)
	}
}

func TestFindByUsername(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := mustCreateUser(t, db, "alice")

	got, err := db.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.ID != alice.ID || got.Username != "alice" {
		t.Errorf("FindByUsername = %+v, want %+v", got, alice)
	}

	_, err = db.FindByUsername(ctx, "ghost")
	if !errors.Is(err, tweets.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if got := tweets.Classify(err); got != "UserNotFoundError - User not found" {
		t.Errorf("Classify = %q", got)
	}
}

func TestFindByUsername_InvalidStoredUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// A row written outside CreateUser that breaks the username rules.
	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, created_at) VALUES ('u-1', 'x!', ?)`, fixedNow); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := db.FindByUsername(ctx, "x!")
	if tweets.KindOf(err) != tweets.KindUserValidation {
		t.Errorf("expected KindUserValidation, got %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, db, "bob_the_builder")
	if user.ID == "" {
		t.Error("expected generated id")
	}

	if _, err := db.CreateUser(ctx, "bob_the_builder"); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
	if _, err := db.CreateUser(ctx, "no"); tweets.KindOf(err) != tweets.KindUserValidation {
		t.Errorf("expected KindUserValidation for a short username, got %v", err)
	}
}

func TestSession_CreateTweet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	mustCreateUser(t, db, "alice")

	session, err := db.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer session.Release()

	repo := tweets.NewSessionRepository(session).WithClock(func() time.Time { return fixedNow })
	tweet, err := repo.CreateTweet(ctx, models.CreateTweetRequest{Content: "hello world", User: "alice"})
	if err != nil {
		t.Fatalf("CreateTweet: %v", err)
	}

	if tweet.ID == "" {
		t.Error("expected id assigned at insert")
	}
	if tweet.Content != "hello world" || tweet.User.Username != "alice" {
		t.Errorf("tweet = %+v", tweet)
	}
	if !tweet.CreatedAt.Equal(fixedNow) || !tweet.UpdatedAt.Equal(fixedNow) {
		t.Errorf("timestamps = %v / %v, want %v", tweet.CreatedAt, tweet.UpdatedAt, fixedNow)
	}

	listed, err := db.ListTweetsByUser(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListTweetsByUser: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != tweet.ID {
		t.Errorf("ListTweetsByUser = %+v, want the created tweet", listed)
	}
}

func TestSession_UnknownUserWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	session, err := db.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer session.Release()

	_, err = tweets.NewSessionRepository(session).CreateTweet(ctx, models.CreateTweetRequest{Content: "hi", User: "ghost"})
	if !errors.Is(err, tweets.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts: %v", err)
	}
	if counts.Tweets != 0 {
		t.Errorf("expected no tweets, got %d", counts.Tweets)
	}
}

func TestSession_ReleaseIdempotent(t *testing.T) {
	db := setupTestDB(t)

	session, err := db.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	session.Release()
	session.Release()

	// The pool still serves queries after the pinned connection was returned.
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping after release: %v", err)
	}
}

func TestAcquire_CanceledContext(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := db.Acquire(ctx); err == nil {
		t.Error("expected error acquiring with a canceled context")
	}
}

func TestDeadLetters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	env := models.NewRetryEnvelope(models.CreateTweetRequest{Content: "hi", User: "ghost"}).WithRetryCount(3)
	records := []*models.DeadLetterRecord{
		{ID: "dl-1", OriginalMessage: env, Error: "UserNotFoundError - User not found", FailedAttempts: 3, MessageID: "m-1", FailedAt: fixedNow.Add(-2 * time.Hour)},
		{ID: "dl-2", Error: "Error - message body is not a JSON object", RawPayload: "garbage", FailedAt: fixedNow.Add(-time.Hour)},
		{ID: "dl-3", OriginalMessage: env, Error: "CreateTweetValidationError - Content is required", FailedAttempts: 3, FailedAt: fixedNow},
	}
	for _, rec := range records {
		if err := db.SaveDeadLetter(ctx, rec); err != nil {
			t.Fatalf("SaveDeadLetter(%s): %v", rec.ID, err)
		}
	}
	// Redelivery of the same record is ignored.
	if err := db.SaveDeadLetter(ctx, records[0]); err != nil {
		t.Fatalf("SaveDeadLetter duplicate: %v", err)
	}

	since := fixedNow.Add(-90 * time.Minute)
	tests := []struct {
		name   string
		filter models.DeadLetterFilter
		want   []string
	}{
		{"all newest first", models.DeadLetterFilter{}, []string{"dl-3", "dl-2", "dl-1"}},
		{"limit", models.DeadLetterFilter{Limit: 1}, []string{"dl-3"}},
		{"since", models.DeadLetterFilter{Since: &since}, []string{"dl-3", "dl-2"}},
		{"kind", models.DeadLetterFilter{Kind: "UserNotFoundError"}, []string{"dl-1"}},
		{"kind and since", models.DeadLetterFilter{Kind: "UserNotFoundError", Since: &since}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListDeadLetters(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListDeadLetters: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("record[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}

	got, _ := db.ListDeadLetters(ctx, models.DeadLetterFilter{Kind: "UserNotFoundError"})
	rec := got[0]
	if rec.OriginalMessage == nil || rec.OriginalMessage.User != "ghost" || rec.OriginalMessage.RetryCount != 3 {
		t.Errorf("OriginalMessage = %+v", rec.OriginalMessage)
	}
	if rec.MessageID != "m-1" || rec.FailedAttempts != 3 || !rec.FailedAt.Equal(records[0].FailedAt) {
		t.Errorf("record = %+v", rec)
	}

	raw, _ := db.ListDeadLetters(ctx, models.DeadLetterFilter{Kind: "Error"})
	if len(raw) != 1 || raw[0].OriginalMessage != nil || raw[0].RawPayload != "garbage" {
		t.Errorf("raw payload record = %+v", raw)
	}
}

func TestSaveDeadLetter_RequiresID(t *testing.T) {
	db := setupTestDB(t)
	if err := db.SaveDeadLetter(context.Background(), &models.DeadLetterRecord{Error: "e"}); err == nil {
		t.Error("expected error for record without id")
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("sql: database is closed"), true},
		{errors.New("driver: bad connection"), true},
		{errors.New("Binder Error: column not found"), false},
	}
	for _, tt := range tests {
		if got := isConnectionError(tt.err); got != tt.want {
			t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestExportTo(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateUser(ctx, "alice"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "it's-an-export")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := db.ExportTo(ctx, dir); err != nil {
		t.Fatalf("ExportTo: %v", err)
	}

	for _, name := range []string{"schema.sql", "load.sql"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
