// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package wal

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
)

// Compactor periodically deletes confirmed entries and pending entries
// older than EntryTTL, then reclaims value log space.
type Compactor struct {
	wal    *BadgerWAL
	config Config

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	lastRun     time.Time
	lastDeleted int64
}

// NewCompactor creates a compactor for w.
func NewCompactor(w *BadgerWAL) *Compactor {
	return &Compactor{wal: w, config: w.Config()}
}

func (c *Compactor) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(loopCtx)

	logging.Info().Dur("interval", c.config.CompactInterval).Msg("Outbox compactor started")
	return nil
}

func (c *Compactor) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()
	logging.Info().Msg("Outbox compactor stopped")
}

func (c *Compactor) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Compactor) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CompactInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunNow()
		}
	}
}

// RunNow performs one compaction pass and returns the number of entries
// removed.
func (c *Compactor) RunNow() int64 {
	start := time.Now()

	confirmed, err := c.deleteConfirmed()
	if err != nil {
		logging.Error().Err(err).Msg("Outbox compaction failed to delete confirmed entries")
	}
	expired, err := c.deleteExpired()
	if err != nil {
		logging.Error().Err(err).Msg("Outbox compaction failed to delete expired entries")
	}
	if err := c.wal.RunGC(); err != nil {
		logging.Error().Err(err).Msg("Outbox compaction GC error")
	}

	total := confirmed + expired
	c.mu.Lock()
	c.lastRun = time.Now()
	c.lastDeleted = total
	c.mu.Unlock()
	c.wal.markCompacted()

	metrics.RecordOutboxCompaction(confirmed, expired)
	if total > 0 {
		logging.Info().
			Int64("confirmed", confirmed).
			Int64("expired", expired).
			Dur("duration", time.Since(start)).
			Msg("Outbox compaction removed entries")
	}
	return total
}

// LastRun reports when the last pass finished and how much it removed.
func (c *Compactor) LastRun() (time.Time, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun, c.lastDeleted
}

func (c *Compactor) deleteConfirmed() (int64, error) {
	return c.deleteWhere(prefixConfirmed, false, func(*Entry) bool { return true })
}

func (c *Compactor) deleteExpired() (int64, error) {
	cutoff := c.wal.now().Add(-c.config.EntryTTL)
	return c.deleteWhere(prefixPending, true, func(e *Entry) bool {
		return e.CreatedAt.Before(cutoff)
	})
}

// deleteWhere removes the keys under prefix whose entry matches. Values are
// only decoded when decode is set.
func (c *Compactor) deleteWhere(prefix string, decode bool, match func(*Entry) bool) (int64, error) {
	if err := c.wal.checkOpen(); err != nil {
		return 0, err
	}

	var count int64
	err := c.wal.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = decode
		it := txn.NewIterator(opts)

		var keys [][]byte
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			if decode {
				var entry Entry
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &entry)
				}); err != nil || !match(&entry) {
					continue
				}
			}
			keys = append(keys, item.KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}
