// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/splay/internal/models"
)

// setupHubServer upgrades every request into a client for the user named
// in the "user" query parameter.
func setupHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		client := NewClient(hub, conn, r.URL.Query().Get("user"))
		hub.Register <- client
		client.Start()
	}))
	t.Cleanup(srv.Close)
	return srv
}

// dialWebSocket connects as user and waits for the connected greeting.
func dialWebSocket(t *testing.T, server *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/?user=" + user
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if msg := readMessage(t, conn); msg.Type != MessageTypeConnected {
		t.Fatalf("Expected connected greeting, got %q", msg.Type)
	}
	return conn
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Invalid message %s: %v", data, err)
	}
	return msg
}

func TestNewClient(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, "user-1")

	if client.UserID() != "user-1" {
		t.Errorf("Expected user-1, got %s", client.UserID())
	}
	if cap(client.send) != 256 {
		t.Errorf("Expected send channel capacity 256, got %d", cap(client.send))
	}
	other := NewClient(hub, nil, "user-1")
	if other.ID() <= client.ID() {
		t.Error("Expected increasing client IDs")
	}
}

func TestClient_ReceivesOwnLogEvents(t *testing.T) {
	hub := startHub(t)
	srv := setupHubServer(t, hub)

	alice := dialWebSocket(t, srv, "alice")
	bob := dialWebSocket(t, srv, "bob")

	hub.BroadcastLogEvent(&models.LogEvent{
		Type:   models.EventForwardLogCreated,
		Bucket: "b-1",
		Owner:  "alice",
		Record: json.RawMessage(`{"id":"fl-1","status_code":200}`),
	})

	msg := readMessage(t, alice)
	if msg.Type != models.EventForwardLogCreated {
		t.Fatalf("Expected %s, got %s", models.EventForwardLogCreated, msg.Type)
	}
	var event models.LogEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatal(err)
	}
	if event.Bucket != "b-1" || !strings.Contains(string(event.Record), `"fl-1"`) {
		t.Errorf("Unexpected event %+v", event)
	}

	if err := bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if _, data, err := bob.ReadMessage(); err == nil {
		t.Errorf("Expected bob to receive nothing, got %s", data)
	}
}

func TestClient_AnswersPing(t *testing.T) {
	hub := startHub(t)
	srv := setupHubServer(t, hub)
	conn := dialWebSocket(t, srv, "alice")

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypePong {
		t.Errorf("Expected pong, got %q", msg.Type)
	}
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub := startHub(t)
	srv := setupHubServer(t, hub)
	conn := dialWebSocket(t, srv, "alice")

	if hub.UserClientCount("alice") != 1 {
		t.Fatalf("Expected 1 client, got %d", hub.UserClientCount("alice"))
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 0 {
		t.Error("Expected client to unregister after disconnect")
	}
}
