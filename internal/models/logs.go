// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// BucketReceiveLog records one webhook accepted by a bucket.
//
// Body is the JSON object exactly as received. Headers holds the inbound
// request headers. ForwardLogs is only populated by queries that expand the
// relation.
type BucketReceiveLog struct {
	ID          string              `json:"id"`
	Bucket      string              `json:"bucket"`
	Body        json.RawMessage     `json:"body"`
	Headers     map[string][]string `json:"headers"`
	IP          string              `json:"ip"`
	Created     time.Time           `json:"created"`
	Updated     time.Time           `json:"updated"`
	ForwardLogs []BucketForwardLog  `json:"forward_logs,omitempty"`
}

// BucketForwardLog records one attempt to relay a receive log to a
// destination. StatusCode is 0 when no HTTP response was obtained and Error
// then explains why.
type BucketForwardLog struct {
	ID               string              `json:"id"`
	Bucket           string              `json:"bucket"`
	BucketReceiveLog string              `json:"bucket_receive_log"`
	DestinationURL   string              `json:"destination_url"`
	Body             json.RawMessage     `json:"body"`
	Headers          map[string][]string `json:"headers"`
	StatusCode       int                 `json:"status_code"`
	Attempt          int                 `json:"attempt"`
	Error            string              `json:"error,omitempty"`
	Created          time.Time           `json:"created"`
	Updated          time.Time           `json:"updated"`
}

// Succeeded reports whether the destination answered with a 2xx status.
func (l *BucketForwardLog) Succeeded() bool {
	return l.StatusCode >= 200 && l.StatusCode < 300
}

// LogFilter selects receive or forward logs. Owner scopes the query to one
// user's buckets.
type LogFilter struct {
	Owner      string
	Bucket     string
	ReceiveLog string
	Start      time.Time
	End        time.Time
	Page       int
	PerPage    int
}

// ListResult is one page of records.
type ListResult[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	Items      []T `json:"items"`
}

// NewListResult builds a page, computing TotalPages from total and perPage.
func NewListResult[T any](items []T, page, perPage, total int) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return ListResult[T]{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: pages,
		Items:      items,
	}
}
