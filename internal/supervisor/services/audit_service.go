// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package services

import (
	"context"
)

// AuditCleaner matches *audit.Logger's RunCleanup method.
type AuditCleaner interface {
	RunCleanup(ctx context.Context) error
}

// AuditCleanupService prunes expired audit events under supervision.
//
// Example usage:
//
//	auditLog := audit.NewLogger(nil, audit.FromAppConfig(&cfg.Audit))
//	tree.AddDataService(services.NewAuditCleanupService(auditLog))
type AuditCleanupService struct {
	cleaner AuditCleaner
}

// NewAuditCleanupService creates an audit cleanup service wrapper.
func NewAuditCleanupService(cleaner AuditCleaner) *AuditCleanupService {
	return &AuditCleanupService{cleaner: cleaner}
}

// Serve implements suture.Service.
func (s *AuditCleanupService) Serve(ctx context.Context) error {
	return s.cleaner.RunCleanup(ctx)
}

// String implements fmt.Stringer for logging.
func (s *AuditCleanupService) String() string {
	return "audit-cleanup"
}
