// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// createTestClient creates a client without a connection.
func createTestClient(hub *Hub, userID string) *Client {
	return &Client{id: clientIDCounter.Add(1), userID: userID, hub: hub, send: make(chan Message, 8)}
}

// registerClient registers client and discards its connected greeting.
func registerClient(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	hub.Register <- client
	msg := receive(t, client)
	if msg.Type != MessageTypeConnected {
		t.Fatalf("Expected connected greeting, got %q", msg.Type)
	}
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-client.send:
		if !ok {
			t.Fatal("client send channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func expectNothing(t *testing.T, client *Client) {
	t.Helper()
	select {
	case msg := <-client.send:
		t.Errorf("Expected no message for user %s, got %q", client.userID, msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func logEvent(owner string) *models.LogEvent {
	return &models.LogEvent{
		Type:   models.EventReceiveLogCreated,
		Bucket: "b-1",
		Owner:  owner,
		Record: json.RawMessage(`{"id":"rl-1"}`),
	}
}

func TestHub_BroadcastToUserOnlyReachesOwner(t *testing.T) {
	hub := startHub(t)

	alice1 := createTestClient(hub, "alice")
	alice2 := createTestClient(hub, "alice")
	bob := createTestClient(hub, "bob")
	for _, c := range []*Client{alice1, alice2, bob} {
		registerClient(t, hub, c)
	}

	hub.BroadcastLogEvent(logEvent("alice"))

	for _, c := range []*Client{alice1, alice2} {
		msg := receive(t, c)
		if msg.Type != models.EventReceiveLogCreated {
			t.Errorf("Expected %s, got %s", models.EventReceiveLogCreated, msg.Type)
		}
		event, ok := msg.Data.(*models.LogEvent)
		if !ok || event.Bucket != "b-1" {
			t.Errorf("Expected log event payload, got %#v", msg.Data)
		}
	}
	expectNothing(t, bob)

	if got := hub.UserClientCount("alice"); got != 2 {
		t.Errorf("Expected 2 clients for alice, got %d", got)
	}
}

func TestHub_EventWithoutOwnerIsDropped(t *testing.T) {
	hub := startHub(t)
	c := createTestClient(hub, "alice")
	registerClient(t, hub, c)

	hub.BroadcastLogEvent(logEvent(""))
	expectNothing(t, c)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := createTestClient(hub, "alice")
	registerClient(t, hub, c)

	hub.Unregister <- c

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("Expected send channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel never closed")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.GetClientCount())
	}
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	hub := startHub(t)
	slow := &Client{id: clientIDCounter.Add(1), userID: "alice", hub: hub, send: make(chan Message, 1)}
	hub.Register <- slow
	// The greeting fills the buffer.

	hub.BroadcastToUser("alice", Message{Type: "first"})

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 0 {
		t.Error("Expected slow client to be dropped")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()

	c := createTestClient(hub, "alice")
	registerClient(t, hub, c)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	if _, ok := <-c.send; ok {
		t.Error("Expected client channel closed on shutdown")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected no clients after shutdown, got %d", hub.GetClientCount())
	}
}

func TestGetShutdownReason(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(canceled); got != ShutdownReasonContextCanceled {
		t.Errorf("Expected %s, got %s", ShutdownReasonContextCanceled, got)
	}

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("Expected %s, got %s", ShutdownReasonContextDeadline, got)
	}
}

func TestMarshalMessage(t *testing.T) {
	data, err := MarshalMessage(Message{Type: models.EventForwardLogCreated, Data: logEvent("alice")})
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Type string          `json:"type"`
		Data models.LogEvent `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != models.EventForwardLogCreated || decoded.Data.Owner != "alice" {
		t.Errorf("Unexpected round trip %+v", decoded)
	}
}
