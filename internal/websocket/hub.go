// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package websocket

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/tweetqueue/internal/logging"
	"github.com/tomtom215/tweetqueue/internal/metrics"
	"github.com/tomtom215/tweetqueue/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types sent to feed clients.
const (
	MessageTypeTweetCreated     = "tweet_created"
	MessageTypeTweetFailed      = "tweet_failed"
	MessageTypeDeadLetterStored = "dead_letter_stored"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
)

// registerTimeout bounds how long Attach waits for the hub loop.
const registerTimeout = 5 * time.Second

// Message is one feed frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of feed clients and fans pipeline events out to them.
// It satisfies eventprocessor.Observer.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	maxClients int
	dropped    atomic.Int64
}

// NewHub creates a hub accepting at most maxClients connections.
// Zero means unlimited.
func NewHub(maxClients int) *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		maxClients: maxClients,
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err(). It is safe to call again after it returns,
// which lets a supervisor restart it.
//
// Shutdown is checked first, then client lifecycle events, then broadcasts,
// so client state is consistent before any message goes out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.TrackFeedClient(true)
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("feed client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		metrics.TrackFeedClient(false)
		logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("feed client disconnected")
	}
}

// Attach registers client with the running hub and starts its pumps. It
// returns false, and closes the client's connection, when the hub does not
// accept the client within a few seconds.
func (h *Hub) Attach(client *Client) bool {
	timer := time.NewTimer(registerTimeout)
	defer timer.Stop()

	select {
	case h.Register <- client:
		client.Start()
		return true
	case <-timer.C:
		logging.Warn().Uint64("client_id", client.id).Msg("feed hub not accepting clients")
		client.closeConn()
		return false
	}
}

// Full reports whether the hub is at its client limit.
func (h *Hub) Full() bool {
	return h.maxClients > 0 && h.GetClientCount() >= h.maxClients
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "feed-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("feed hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients returns clients in connection order. Caller holds mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers message to every client in connection order.
// Clients whose send buffer is full are disconnected.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		close(client.send)
		delete(h.clients, client)
		metrics.TrackFeedClient(false)
		logging.Warn().Uint64("client_id", client.id).Msg("feed client too slow, disconnecting")
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
		metrics.TrackFeedClient(false)
	}
}

// BroadcastJSON queues a message for every client. It never blocks; when the
// broadcast buffer is full the message is dropped.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
		metrics.RecordFeedEvent(messageType)
	default:
		h.dropped.Add(1)
		logging.Warn().Str("message_type", messageType).Msg("feed broadcast channel full, dropping message")
	}
}

// TweetCreated implements eventprocessor.Observer.
func (h *Hub) TweetCreated(tweet *models.Tweet) {
	h.BroadcastJSON(MessageTypeTweetCreated, tweet)
}

// TweetFailed implements eventprocessor.Observer.
func (h *Hub) TweetFailed(failure *models.TweetFailure) {
	h.BroadcastJSON(MessageTypeTweetFailed, failure)
}

// DeadLetterStored implements eventprocessor.Observer.
func (h *Hub) DeadLetterStored(record *models.DeadLetterRecord) {
	h.BroadcastJSON(MessageTypeDeadLetterStored, record)
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many broadcasts were discarded because the buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
