// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package backup

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/tweetqueue/internal/database"
)

var (
	// ErrBackupInProgress is returned when a backup is already running.
	ErrBackupInProgress = errors.New("backup already in progress")

	// ErrBackupNotFound is returned for an unknown backup id.
	ErrBackupNotFound = errors.New("backup not found")
)

// Status represents the state of a backup.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Trigger indicates what initiated the backup.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Backup describes one archive in the backup directory.
type Backup struct {
	ID          string                 `json:"id"`
	Status      Status                 `json:"status"`
	Trigger     Trigger                `json:"trigger"`
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt time.Time              `json:"completed_at"`
	DurationMs  int64                  `json:"duration_ms"`
	FileName    string                 `json:"file_name,omitempty"`
	FileSize    int64                  `json:"file_size"`
	Checksum    string                 `json:"checksum,omitempty"` // SHA-256 of the archive
	Records     *database.RecordCounts `json:"records,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Source is the store being backed up. *database.DB satisfies it.
type Source interface {
	ExportTo(ctx context.Context, dir string) error
	GetRecordCounts(ctx context.Context) (database.RecordCounts, error)
}
