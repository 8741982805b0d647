// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/tweetqueue/internal/backup"
)

// Backuper creates and lists store archives. Satisfied by *backup.Manager.
type Backuper interface {
	CreateBackup(ctx context.Context, trigger backup.Trigger) (*backup.Backup, error)
	List() []*backup.Backup
}

type backupsResponse struct {
	Backups []*backup.Backup `json:"backups"`
	Count   int              `json:"count"`
}

// Backups lists recorded backups, newest first, including failed attempts.
func (h *Handler) Backups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	list := h.backups.List()
	respondData(w, http.StatusOK, backupsResponse{Backups: list, Count: len(list)}, start)
}

// CreateBackup takes a backup synchronously and returns its record.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	b, err := h.backups.CreateBackup(r.Context(), backup.TriggerManual)
	if errors.Is(err, backup.ErrBackupInProgress) {
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "A backup is already in progress", nil)
		return
	}

	var id string
	if b != nil {
		id = b.ID
	}
	if err != nil {
		h.audit.LogBackupCreated(r.Context(), actor(r), clientIP(r), id, "", err)
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Backup failed", err)
		return
	}
	h.audit.LogBackupCreated(r.Context(), actor(r), clientIP(r), id, b.FileName, nil)

	respondData(w, http.StatusCreated, b, start)
}
