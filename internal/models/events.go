// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package models

import "github.com/goccy/go-json"

// Log event types pushed to subscribers.
const (
	EventReceiveLogCreated = "receive_log.created"
	EventForwardLogCreated = "forward_log.created"
)

// LogEvent announces a new log record. Owner is the user who owns Bucket and
// routes the event to that user's websocket clients only.
type LogEvent struct {
	Type   string          `json:"type"`
	Bucket string          `json:"bucket"`
	Owner  string          `json:"owner"`
	Record json.RawMessage `json:"record"`
}

// ReceiveJob carries a stored receive log to the forwarder.
type ReceiveJob struct {
	Log       BucketReceiveLog `json:"log"`
	Owner     string           `json:"owner"`
	ClientIP  string           `json:"client_ip"`
	RequestID string           `json:"request_id,omitempty"`
}
