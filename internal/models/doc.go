// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

// Package models defines the records Splay stores and serves: users, buckets,
// forward settings, and the receive and forward logs written for every
// webhook. JSON names match the collections the SPA consumes.
package models
