// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/events"
	"github.com/tomtom215/splay/internal/models"
)

func TestBridge_FansEventsToOwner(t *testing.T) {
	bus, err := events.New(config.EventsConfig{BufferSize: 16})
	if err != nil {
		t.Fatal(err)
	}
	defer bus.Close()

	hub := startHub(t)
	alice := createTestClient(hub, "alice")
	registerClient(t, hub, alice)

	bridge := NewBridge(hub, bus)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Serve(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Subscriptions are asynchronous; publish until the first event lands.
	job := &models.ReceiveJob{
		Log:   models.BucketReceiveLog{ID: "rl-1", Bucket: "b-1", Body: json.RawMessage(`{}`)},
		Owner: "alice",
	}
	deadline := time.Now().Add(3 * time.Second)
	var got Message
	for got.Type == "" && time.Now().Before(deadline) {
		if err := bus.PublishReceiveLog(ctx, job); err != nil {
			t.Fatal(err)
		}
		select {
		case got = <-alice.send:
		case <-time.After(50 * time.Millisecond):
		}
	}
	if got.Type != models.EventReceiveLogCreated {
		t.Fatalf("Expected receive log event, got %q", got.Type)
	}
	event := got.Data.(*models.LogEvent)
	if event.Owner != "alice" || event.Bucket != "b-1" {
		t.Errorf("Unexpected event %+v", event)
	}

	if err := bus.PublishForwardLog(ctx, "alice", &models.BucketForwardLog{ID: "fl-1", Bucket: "b-1", StatusCode: 204}); err != nil {
		t.Fatal(err)
	}
	for {
		msg := receive(t, alice)
		if msg.Type == models.EventForwardLogCreated {
			break
		}
	}
}

func TestBridge_HandleForwardLogRejectsGarbage(t *testing.T) {
	bridge := NewBridge(NewHub(), nil)
	msg := message.NewMessage("m-1", []byte("nope"))
	if err := bridge.HandleForwardLog(context.Background(), msg); err == nil {
		t.Error("Expected decode error")
	}
	if err := bridge.HandleReceiveLog(context.Background(), msg); err == nil {
		t.Error("Expected decode error")
	}
}
