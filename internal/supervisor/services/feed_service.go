// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package services

import (
	"context"
)

// ContextHub matches *websocket.Hub's RunWithContext method.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// FeedHubService runs the live feed hub under supervision. The hub already
// follows the Serve contract, so this only delegates and names it.
//
// Example usage:
//
//	hub := websocket.NewHub(cfg.Feed.MaxClients)
//	tree.AddMessagingService(services.NewFeedHubService(hub))
type FeedHubService struct {
	hub  ContextHub
	name string
}

// NewFeedHubService creates a feed hub service wrapper.
func NewFeedHubService(hub ContextHub) *FeedHubService {
	return &FeedHubService{hub: hub, name: "feed-hub"}
}

// Serve implements suture.Service.
func (s *FeedHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
func (s *FeedHubService) String() string {
	return s.name
}
