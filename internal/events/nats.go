// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/splay/internal/config"
)

// natsOptions returns connection options with reconnection logging.
// Subscriptions use core NATS: log events are notifications and the
// records themselves are already durable in DuckDB.
func natsOptions(name string, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name(name),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}
}

func newNATSPublisher(cfg config.EventsConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOptions("splay-publisher", logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return pub, nil
}

func newNATSSubscriber(cfg config.EventsConfig, queueGroup string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	subscribers := cfg.SubscribersCount
	if subscribers <= 0 {
		subscribers = 1
	}
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: subscribers,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOptions("splay-subscriber", logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return sub, nil
}
