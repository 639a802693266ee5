// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/metrics"
)

// HandlerFunc processes one message. Returned errors are logged and the
// message is acked; consumers are notification sinks and a redelivery loop
// would only repeat the failure.
type HandlerFunc func(ctx context.Context, msg *message.Message) error

// Consumer subscribes to one topic and runs a handler for each message. It
// implements suture.Service and resubscribes when restarted.
type Consumer struct {
	name    string
	topic   string
	sub     message.Subscriber
	handler HandlerFunc

	readyOnce sync.Once
	ready     chan struct{}
}

// NewConsumer creates a consumer of topic on sub.
func NewConsumer(name, topic string, sub message.Subscriber, handler HandlerFunc) *Consumer {
	return &Consumer{
		name:    name,
		topic:   topic,
		sub:     sub,
		handler: handler,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the first subscription is established.
func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

// Serve consumes messages until ctx is canceled.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.sub.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}
	c.readyOnce.Do(func() { close(c.ready) })

	log := logging.WithComponent(c.name)
	log.Debug().Str("topic", c.topic).Msg("Consumer subscribed")

	// Recoverer turns a handler panic into an error instead of killing
	// the subscription.
	handle := middleware.Recoverer(func(msg *message.Message) ([]*message.Message, error) {
		return nil, c.handler(ctx, msg)
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("subscription closed")
			}
			if _, err := handle(msg); err != nil {
				log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Event handler failed")
			}
			metrics.RecordEventConsumed(c.topic, c.name)
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (c *Consumer) String() string {
	return c.name
}
