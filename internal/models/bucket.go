// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package models

import "time"

// Bucket is an inbound webhook endpoint reachable at POST /buckets/{slug}.
// The slug is immutable once created.
type Bucket struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	User        string    `json:"user"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// ForwardSetting is an outbound destination that receives a copy of every
// payload the bucket accepts.
type ForwardSetting struct {
	ID      string    `json:"id"`
	Bucket  string    `json:"bucket"`
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}
