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

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/metrics"
	"github.com/tomtom215/splay/internal/models"
)

// Topics.
const (
	TopicReceiveLogs = "splay.receive_logs"
	TopicForwardLogs = "splay.forward_logs"
)

// metadataType carries the event type on every message.
const metadataType = "type"

// ErrBusClosed is returned when publishing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Bus publishes log events and hands out subscribers for consumers.
//
// Without a NATS URL a single watermill GoChannel serves as publisher and
// subscriber, and every consumer of a topic sees every message. With NATS,
// each consumer gets its own subscriber so shared consumers can join a queue
// group while fan-out consumers receive everything.
type Bus struct {
	cfg       config.EventsConfig
	logger    watermill.LoggerAdapter
	publisher message.Publisher
	local     *gochannel.GoChannel

	mu          sync.Mutex
	subscribers []message.Subscriber
	closed      bool
}

// New creates the bus for cfg.
func New(cfg config.EventsConfig) (*Bus, error) {
	logger := logging.NewWatermillLogger()
	b := &Bus{cfg: cfg, logger: logger}

	if cfg.NATSURL == "" {
		b.local = gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.BufferSize,
		}, logger)
		b.publisher = b.local
		logging.Info().Msg("Event bus using in-process channels")
		return b, nil
	}

	pub, err := newNATSPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}
	b.publisher = pub
	logging.Info().Str("url", cfg.NATSURL).Msg("Event bus using NATS")
	return b, nil
}

// Subscriber returns a subscriber for a consumer. shared consumers split
// messages across instances through the configured queue group; the rest
// receive every message.
func (b *Bus) Subscriber(shared bool) (message.Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	if b.local != nil {
		return b.local, nil
	}

	queueGroup := ""
	if shared {
		queueGroup = b.cfg.QueueGroup
	}
	sub, err := newNATSSubscriber(b.cfg, queueGroup, b.logger)
	if err != nil {
		return nil, err
	}
	b.subscribers = append(b.subscribers, sub)
	return sub, nil
}

// PublishReceiveLog announces a stored receive log.
func (b *Bus) PublishReceiveLog(ctx context.Context, job *models.ReceiveJob) error {
	return b.publish(ctx, TopicReceiveLogs, models.EventReceiveLogCreated, job)
}

// PublishForwardLog announces a forward attempt.
func (b *Bus) PublishForwardLog(ctx context.Context, owner string, l *models.BucketForwardLog) error {
	record, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal forward log: %w", err)
	}
	return b.publish(ctx, TopicForwardLogs, models.EventForwardLogCreated, &models.LogEvent{
		Type:   models.EventForwardLogCreated,
		Bucket: l.Bucket,
		Owner:  owner,
		Record: record,
	})
}

func (b *Bus) publish(ctx context.Context, topic, eventType string, payload interface{}) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metadataType, eventType)
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		msg.Metadata.Set("request_id", requestID)
	}

	err = b.publisher.Publish(topic, msg)
	metrics.RecordEventPublish(topic, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close closes the publisher and every subscriber handed out.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, sub := range b.subscribers {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DecodeReceiveJob decodes a message from TopicReceiveLogs.
func DecodeReceiveJob(msg *message.Message) (*models.ReceiveJob, error) {
	var job models.ReceiveJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		return nil, fmt.Errorf("decode receive job %s: %w", msg.UUID, err)
	}
	return &job, nil
}

// DecodeLogEvent decodes a message from TopicForwardLogs.
func DecodeLogEvent(msg *message.Message) (*models.LogEvent, error) {
	var event models.LogEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode log event %s: %w", msg.UUID, err)
	}
	return &event, nil
}
