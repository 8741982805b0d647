// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package auth

import (
	"sync"
	"time"

	"github.com/tomtom215/tweetqueue/internal/cache"
	"github.com/tomtom215/tweetqueue/internal/logging"
)

// LockoutConfig controls how failed logins lock a client out.
type LockoutConfig struct {
	MaxAttempts        int
	LockoutDuration    time.Duration
	MaxLockoutDuration time.Duration
	// MaxSubjects bounds how many clients are tracked at once.
	MaxSubjects int
}

// DefaultLockoutConfig locks for 15 minutes after 5 failures, doubling on
// each repeat up to 24 hours.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxAttempts:        5,
		LockoutDuration:    15 * time.Minute,
		MaxLockoutDuration: 24 * time.Hour,
		MaxSubjects:        10000,
	}
}

type lockoutEntry struct {
	failedAttempts int
	lockoutCount   int
	lockedUntil    time.Time
}

// Lockout counts failed logins per subject (normally the client IP).
type Lockout struct {
	config  LockoutConfig
	mu      sync.Mutex
	entries *cache.LRU[string, lockoutEntry]
	now     func() time.Time
}

// NewLockout creates an in-memory lockout tracker. Entries are forgotten
// after MaxLockoutDuration without activity.
func NewLockout(cfg LockoutConfig) *Lockout {
	return &Lockout{
		config:  cfg,
		entries: cache.NewLRU[string, lockoutEntry](cfg.MaxSubjects, cfg.MaxLockoutDuration),
		now:     time.Now,
	}
}

// Locked reports whether subject is locked and for how much longer.
func (l *Lockout) Locked(subject string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries.Get(subject)
	if !ok {
		return false, 0
	}
	if remaining := entry.lockedUntil.Sub(l.now()); remaining > 0 {
		return true, remaining
	}
	return false, 0
}

// RecordFailure counts a failed attempt and reports whether it caused a
// lockout.
func (l *Lockout) RecordFailure(subject string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, _ := l.entries.Get(subject)
	if remaining := entry.lockedUntil.Sub(now); remaining > 0 {
		return true, remaining
	}

	entry.failedAttempts++
	if entry.failedAttempts < l.config.MaxAttempts {
		l.entries.Add(subject, entry)
		return false, 0
	}

	d := l.lockoutDuration(entry.lockoutCount)
	entry.lockedUntil = now.Add(d)
	entry.lockoutCount++
	entry.failedAttempts = 0
	l.entries.Add(subject, entry)

	logging.Warn().
		Str("subject", subject).
		Dur("duration", d).
		Int("lockout_count", entry.lockoutCount).
		Msg("Login locked out")
	return true, d
}

// RecordSuccess clears the subject's history.
func (l *Lockout) RecordSuccess(subject string) {
	l.mu.Lock()
	l.entries.Remove(subject)
	l.mu.Unlock()
}

// lockoutDuration doubles the base duration for each previous lockout.
func (l *Lockout) lockoutDuration(previous int) time.Duration {
	d := l.config.LockoutDuration
	for i := 0; i < previous && d < l.config.MaxLockoutDuration; i++ {
		d *= 2
	}
	if d > l.config.MaxLockoutDuration {
		return l.config.MaxLockoutDuration
	}
	return d
}
