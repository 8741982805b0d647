// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package tweets

import (
	"context"
	"time"

	"github.com/tomtom215/tweetqueue/internal/cache"
	"github.com/tomtom215/tweetqueue/internal/metrics"
	"github.com/tomtom215/tweetqueue/internal/models"
)

// UserCache remembers resolved users by username. Only found users are
// cached; a miss always goes to the database, so a user created after a
// failed lookup is visible on the next message.
type UserCache struct {
	users *cache.LRU[string, models.User]
}

// NewUserCache creates a cache of at most size users, each kept for ttl.
func NewUserCache(size int, ttl time.Duration) *UserCache {
	return &UserCache{users: cache.NewLRU[string, models.User](size, ttl)}
}

func (c *UserCache) lookup(ctx context.Context, finder UserFinder, username string) (*models.User, error) {
	if u, ok := c.users.Get(username); ok {
		metrics.RecordUserCacheLookup(true)
		return &u, nil
	}
	metrics.RecordUserCacheLookup(false)

	user, err := finder.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user != nil {
		c.users.Add(username, *user)
	}
	return user, nil
}

// Stats returns cache hit and miss counts.
func (c *UserCache) Stats() cache.Stats {
	return c.users.Stats()
}

// CachedStore wraps a Store so that every session resolves users through a
// shared UserCache.
type CachedStore struct {
	store Store
	cache *UserCache
}

var _ Store = (*CachedStore)(nil)

// NewCachedStore wraps store. A nil cache returns a store that never caches.
func NewCachedStore(store Store, users *UserCache) *CachedStore {
	return &CachedStore{store: store, cache: users}
}

// Acquire implements Store.
func (s *CachedStore) Acquire(ctx context.Context) (Session, error) {
	session, err := s.store.Acquire(ctx)
	if err != nil || s.cache == nil {
		return session, err
	}
	return &cachedSession{Session: session, cache: s.cache}, nil
}

type cachedSession struct {
	Session
	cache *UserCache
}

func (s *cachedSession) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.cache.lookup(ctx, s.Session, username)
}
