// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
)

const metadataFileName = "metadata.json"

// Manager creates archives of the store on a schedule or on demand and
// prunes old ones. Backup metadata is kept in metadata.json alongside the
// archives.
type Manager struct {
	cfg Config
	src Source

	metadataFile string
	backups      []*Backup
	metadataMu   sync.RWMutex

	// createMu serializes exports; TryLock rejects overlapping requests.
	createMu sync.Mutex

	running   bool
	runningMu sync.Mutex
	stopChan  chan struct{}
	stopped   chan struct{}

	now func() time.Time
}

// NewManager creates the backup directory and loads existing metadata.
func NewManager(cfg Config, src Source) (*Manager, error) {
	if src == nil {
		return nil, fmt.Errorf("backup source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	m := &Manager{
		cfg:          cfg,
		src:          src,
		metadataFile: filepath.Join(cfg.Dir, metadataFileName),
		now:          time.Now,
	}
	if err := m.loadMetadata(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Str("file", m.metadataFile).Msg("Backup metadata unreadable, starting empty")
	}
	return m, nil
}

// CreateBackup exports the store and archives it. A failed backup is
// recorded with its error and the error is returned.
func (m *Manager) CreateBackup(ctx context.Context, trigger Trigger) (*Backup, error) {
	if !m.createMu.TryLock() {
		return nil, ErrBackupInProgress
	}
	defer m.createMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	start := m.now().UTC()
	b := &Backup{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		CreatedAt: start,
	}

	err := m.createArchive(ctx, b)
	b.CompletedAt = m.now().UTC()
	b.DurationMs = b.CompletedAt.Sub(start).Milliseconds()
	metrics.RecordBackup(string(trigger), b.CompletedAt.Sub(start), b.FileSize, err)

	if err != nil {
		b.Status = StatusFailed
		b.Error = err.Error()
		m.saveBackup(b)
		return b, err
	}

	b.Status = StatusCompleted
	m.saveBackup(b)
	logging.Info().
		Str("backup_id", b.ID).
		Str("trigger", string(trigger)).
		Str("file", b.FileName).
		Int64("size_bytes", b.FileSize).
		Int64("duration_ms", b.DurationMs).
		Msg("Backup completed")
	return b, nil
}

func (m *Manager) createArchive(ctx context.Context, b *Backup) error {
	if counts, err := m.src.GetRecordCounts(ctx); err == nil {
		b.Records = &counts
	}

	exportDir, err := os.MkdirTemp(m.cfg.Dir, ".export-")
	if err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	defer os.RemoveAll(exportDir) //nolint:errcheck // Best effort cleanup

	if err := m.src.ExportTo(ctx, exportDir); err != nil {
		return err
	}

	b.FileName = fmt.Sprintf("backup-%s-%s.tar.gz", b.CreatedAt.Format("20060102-150405"), b.ID[:8])
	path := filepath.Join(m.cfg.Dir, b.FileName)

	checksum, err := writeArchive(exportDir, path, m.cfg.CompressionLevel)
	if err != nil {
		os.Remove(path) //nolint:errcheck // Best effort cleanup of a partial archive
		b.FileName = ""
		return fmt.Errorf("write archive: %w", err)
	}
	b.Checksum = checksum

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	b.FileSize = info.Size()
	return nil
}

// List returns all recorded backups, newest first.
func (m *Manager) List() []*Backup {
	m.metadataMu.RLock()
	defer m.metadataMu.RUnlock()

	out := make([]*Backup, len(m.backups))
	copy(out, m.backups)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Get returns a backup by id.
func (m *Manager) Get(id string) (*Backup, error) {
	m.metadataMu.RLock()
	defer m.metadataMu.RUnlock()

	for _, b := range m.backups {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
}

// ApplyRetention keeps the newest Retain completed backups and removes the
// rest with their archives. Failed entries older than the oldest kept
// backup are dropped too.
func (m *Manager) ApplyRetention() (int, error) {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	sort.Slice(m.backups, func(i, j int) bool { return m.backups[i].CreatedAt.After(m.backups[j].CreatedAt) })

	kept := make([]*Backup, 0, len(m.backups))
	completed := 0
	removed := 0
	var errs []error
	for _, b := range m.backups {
		if completed < m.cfg.Retain {
			kept = append(kept, b)
			if b.Status == StatusCompleted {
				completed++
			}
			continue
		}
		if b.FileName != "" {
			if err := os.Remove(filepath.Join(m.cfg.Dir, b.FileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
				kept = append(kept, b)
				continue
			}
		}
		removed++
	}
	m.backups = kept

	if err := m.saveMetadataLocked(); err != nil {
		errs = append(errs, err)
	}
	if removed > 0 {
		logging.Info().Int("removed", removed).Int("kept", len(kept)).Msg("Applied backup retention")
	}
	return removed, errors.Join(errs...)
}

// Start begins the backup scheduler.
func (m *Manager) Start(ctx context.Context) error {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()

	if m.running {
		return fmt.Errorf("backup scheduler is already running")
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.stopped = make(chan struct{})

	go m.runScheduler(ctx, m.stopChan, m.stopped)
	return nil
}

// Stop stops the scheduler and waits for an in-flight backup to finish.
func (m *Manager) Stop() {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()

	if !m.running {
		return
	}
	close(m.stopChan)
	<-m.stopped
	m.running = false
}

// IsRunning reports whether the scheduler is active.
func (m *Manager) IsRunning() bool {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()
	return m.running
}

func (m *Manager) runScheduler(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := m.CreateBackup(ctx, TriggerScheduled); err != nil {
				logging.Error().Err(err).Msg("Scheduled backup failed")
			}
			if _, err := m.ApplyRetention(); err != nil {
				logging.Error().Err(err).Msg("Backup retention failed")
			}
		}
	}
}

func (m *Manager) saveBackup(b *Backup) {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	m.backups = append(m.backups, b)
	if err := m.saveMetadataLocked(); err != nil {
		logging.Warn().Err(err).Msg("Failed to save backup metadata")
	}
}

func (m *Manager) loadMetadata() error {
	data, err := os.ReadFile(m.metadataFile)
	if err != nil {
		return err
	}

	var backups []*Backup
	if err := json.Unmarshal(data, &backups); err != nil {
		return err
	}

	m.metadataMu.Lock()
	m.backups = backups
	m.metadataMu.Unlock()
	return nil
}

// saveMetadataLocked writes metadata.json through a temp file rename.
func (m *Manager) saveMetadataLocked() error {
	data, err := json.MarshalIndent(m.backups, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.metadataFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, m.metadataFile)
}
