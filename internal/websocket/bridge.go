// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package websocket

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/splay/internal/events"
	"github.com/tomtom215/splay/internal/models"
)

// SubscriberSource hands out event subscribers.
type SubscriberSource interface {
	Subscriber(shared bool) (message.Subscriber, error)
}

// Bridge fans log events from the bus into the hub. Every instance must see
// every event because websocket clients are local to the process, so it
// subscribes without a queue group.
type Bridge struct {
	hub    *Hub
	source SubscriberSource
}

// NewBridge creates a bridge feeding hub.
func NewBridge(hub *Hub, source SubscriberSource) *Bridge {
	return &Bridge{hub: hub, source: source}
}

// Serve consumes both log topics until ctx is canceled or a consumer
// fails. It implements suture.Service.
func (b *Bridge) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumers := []struct {
		topic   string
		handler events.HandlerFunc
	}{
		{events.TopicReceiveLogs, b.HandleReceiveLog},
		{events.TopicForwardLogs, b.HandleForwardLog},
	}

	errs := make(chan error, len(consumers))
	for _, c := range consumers {
		sub, err := b.source.Subscriber(false)
		if err != nil {
			return fmt.Errorf("websocket bridge subscriber: %w", err)
		}
		consumer := events.NewConsumer("websocket-bridge", c.topic, sub, c.handler)
		go func() { errs <- consumer.Serve(ctx) }()
	}

	// The first consumer to stop takes the other down with it.
	err := <-errs
	cancel()
	<-errs
	return err
}

// HandleReceiveLog pushes a receive_log.created event to the bucket owner.
func (b *Bridge) HandleReceiveLog(ctx context.Context, msg *message.Message) error {
	job, err := events.DecodeReceiveJob(msg)
	if err != nil {
		return err
	}
	record, err := json.Marshal(&job.Log)
	if err != nil {
		return fmt.Errorf("marshal receive log: %w", err)
	}
	b.hub.BroadcastLogEvent(&models.LogEvent{
		Type:   models.EventReceiveLogCreated,
		Bucket: job.Log.Bucket,
		Owner:  job.Owner,
		Record: record,
	})
	return nil
}

// HandleForwardLog pushes a forward_log.created event to the bucket owner.
func (b *Bridge) HandleForwardLog(ctx context.Context, msg *message.Message) error {
	event, err := events.DecodeLogEvent(msg)
	if err != nil {
		return err
	}
	b.hub.BroadcastLogEvent(event)
	return nil
}

// String implements fmt.Stringer for supervisor logs.
func (b *Bridge) String() string {
	return "websocket-bridge"
}
