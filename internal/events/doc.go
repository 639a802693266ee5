// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

// Package events is the log event bus. Receive logs are published on
// splay.receive_logs as ReceiveJob payloads and forward attempts on
// splay.forward_logs as LogEvent payloads. The forwarder consumes the first
// topic through a shared subscriber; the websocket bridge consumes both
// with fan-out subscribers.
package events
