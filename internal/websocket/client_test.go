// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/tweetqueue/internal/models"
)

// setupFeedServer serves a websocket endpoint that attaches to hub.
func setupFeedServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		hub.Attach(NewClient(hub, conn))
	}))
	t.Cleanup(server.Close)
	return server
}

// dialWebSocket connects to the test server.
func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestNewClient(t *testing.T) {
	hub := NewHub(0)
	a := NewClient(hub, nil)
	b := NewClient(hub, nil)

	if a.hub != hub {
		t.Error("client hub not set")
	}
	if cap(a.send) != 256 {
		t.Errorf("send capacity = %d, want 256", cap(a.send))
	}
	if b.ID() <= a.ID() {
		t.Errorf("ids not increasing: %d then %d", a.ID(), b.ID())
	}
}

func TestClient_Constants(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be shorter than pongWait %v", pingPeriod, pongWait)
	}
	if writeWait != 10*time.Second {
		t.Errorf("writeWait = %v, want 10s", writeWait)
	}
}

func TestClient_ReceivesTweetCreated(t *testing.T) {
	hub := setupHub(t, 0)
	conn := dialWebSocket(t, setupFeedServer(t, hub))
	waitForClients(t, hub, 1)

	hub.TweetCreated(&models.Tweet{ID: "7", User: models.User{ID: "u1", Username: "alice"}, Content: "hello"})

	msg := readMessage(t, conn)
	if msg["type"] != MessageTypeTweetCreated {
		t.Fatalf("type = %v, want %s", msg["type"], MessageTypeTweetCreated)
	}
	data, ok := msg["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T, want object", msg["data"])
	}
	if data["id"] != "7" || data["content"] != "hello" {
		t.Errorf("data = %v", data)
	}
}

func TestClient_PingPong(t *testing.T) {
	hub := setupHub(t, 0)
	conn := dialWebSocket(t, setupFeedServer(t, hub))
	waitForClients(t, hub, 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := readMessage(t, conn); msg["type"] != MessageTypePong {
		t.Errorf("type = %v, want pong", msg["type"])
	}
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub := setupHub(t, 0)
	conn := dialWebSocket(t, setupFeedServer(t, hub))
	waitForClients(t, hub, 1)

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = conn.Close()

	waitForClients(t, hub, 0)
}

func TestClient_HubShutdownClosesConnection(t *testing.T) {
	hub := NewHub(0)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := contextUntil(stop)
		defer cancel()
		_ = hub.RunWithContext(ctx)
	}()

	conn := dialWebSocket(t, setupFeedServer(t, hub))
	waitForClients(t, hub, 1)

	close(stop)
	<-done

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close after hub shutdown")
	}
}

func TestHub_AttachTimesOutWhenHubStopped(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the register timeout")
	}
	hub := NewHub(0)
	if hub.Attach(NewClient(hub, nil)) {
		t.Error("Attach() = true on a stopped hub")
	}
}
