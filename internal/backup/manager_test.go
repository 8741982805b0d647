// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tweetqueue/internal/database"
)

// fakeSource writes a fixed export layout, optionally blocking or failing.
type fakeSource struct {
	mu        sync.Mutex
	exports   int
	exportErr error
	block     chan struct{}
	entered   chan struct{}
}

func (f *fakeSource) ExportTo(ctx context.Context, dir string) error {
	f.mu.Lock()
	f.exports++
	f.mu.Unlock()

	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.exportErr != nil {
		return f.exportErr
	}
	files := map[string]string{
		"schema.sql":     "CREATE TABLE tweets(id BIGINT);\n",
		"load.sql":       "COPY tweets FROM 'tweets.parquet' (FORMAT 'parquet');\n",
		"tweets.parquet": "PAR1 fake parquet body PAR1",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSource) GetRecordCounts(context.Context) (database.RecordCounts, error) {
	return database.RecordCounts{Users: 2, Tweets: 10, DeadLetters: 1}, nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.Retain = 2
	cfg.Timeout = 10 * time.Second
	return cfg
}

func readArchive(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	tr := tar.NewReader(gz)

	var names []string
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("tar next: %v", err)
		}
		names = append(names, h.Name)
	}
	sort.Strings(names)
	return names
}

func fileSHA256(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(testConfig(t), nil); err == nil {
		t.Error("expected error for nil source")
	}

	cfg := testConfig(t)
	cfg.Retain = 0
	if _, err := NewManager(cfg, &fakeSource{}); err == nil {
		t.Error("expected error for retain 0")
	}
}

func TestCreateBackup(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	m, err := NewManager(cfg, &fakeSource{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	b, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}
	if b.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", b.Status)
	}
	if b.Records == nil || b.Records.Tweets != 10 {
		t.Errorf("Records = %+v, want 10 tweets", b.Records)
	}

	path := filepath.Join(cfg.Dir, b.FileName)
	if got := fileSHA256(t, path); got != b.Checksum {
		t.Errorf("Checksum = %s, file hashes to %s", b.Checksum, got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != b.FileSize {
		t.Errorf("FileSize = %d, want %d", b.FileSize, info.Size())
	}

	want := []string{"export/load.sql", "export/schema.sql", "export/tweets.parquet"}
	got := readArchive(t, path)
	if len(got) != len(want) {
		t.Fatalf("archive entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// The temporary export directory is removed.
	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			t.Errorf("leftover directory %s", e.Name())
		}
	}
}

func TestCreateBackup_ExportFailure(t *testing.T) {
	t.Parallel()

	exportErr := errors.New("disk full")
	m, err := NewManager(testConfig(t), &fakeSource{exportErr: exportErr})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	b, err := m.CreateBackup(context.Background(), TriggerScheduled)
	if !errors.Is(err, exportErr) {
		t.Fatalf("err = %v, want %v", err, exportErr)
	}
	if b.Status != StatusFailed || b.Error == "" {
		t.Errorf("backup = %+v, want failed with error", b)
	}
	if b.FileName != "" {
		t.Errorf("FileName = %q, want empty", b.FileName)
	}
	if got := m.List(); len(got) != 1 {
		t.Errorf("List() len = %d, want 1", len(got))
	}
}

func TestCreateBackup_InProgress(t *testing.T) {
	t.Parallel()

	src := &fakeSource{block: make(chan struct{}), entered: make(chan struct{})}
	m, err := NewManager(testConfig(t), src)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.CreateBackup(context.Background(), TriggerManual)
		done <- err
	}()
	<-src.entered

	if _, err := m.CreateBackup(context.Background(), TriggerManual); !errors.Is(err, ErrBackupInProgress) {
		t.Errorf("concurrent CreateBackup err = %v, want ErrBackupInProgress", err)
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Errorf("first CreateBackup: %v", err)
	}
}

func TestApplyRetention(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	m, err := NewManager(cfg, &fakeSource{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	base := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	var created []*Backup
	for range 4 {
		b, err := m.CreateBackup(context.Background(), TriggerScheduled)
		if err != nil {
			t.Fatalf("CreateBackup: %v", err)
		}
		created = append(created, b)
	}

	removed, err := m.ApplyRetention()
	if err != nil {
		t.Fatalf("ApplyRetention: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("List() len = %d, want 2", len(list))
	}
	if list[0].ID != created[3].ID || list[1].ID != created[2].ID {
		t.Errorf("kept %s,%s; want newest two", list[0].ID, list[1].ID)
	}
	for _, b := range created[:2] {
		if _, err := os.Stat(filepath.Join(cfg.Dir, b.FileName)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("archive %s still present", b.FileName)
		}
		if _, err := m.Get(b.ID); !errors.Is(err, ErrBackupNotFound) {
			t.Errorf("Get(%s) err = %v, want ErrBackupNotFound", b.ID, err)
		}
	}
}

func TestManager_MetadataPersists(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	m, err := NewManager(cfg, &fakeSource{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	b, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	reopened, err := NewManager(cfg, &fakeSource{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(b.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Checksum != b.Checksum || got.Trigger != TriggerManual {
		t.Errorf("reloaded backup = %+v, want %+v", got, b)
	}
}

func TestManager_Scheduler(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Interval = 20 * time.Millisecond
	src := &fakeSource{}
	m, err := NewManager(cfg, src)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
	if !m.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(m.List()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	m.Stop()

	if m.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	list := m.List()
	if len(list) == 0 {
		t.Fatal("scheduler produced no backups")
	}
	if list[0].Trigger != TriggerScheduled {
		t.Errorf("Trigger = %s, want scheduled", list[0].Trigger)
	}
}
