// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package services

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// CloserService ties a resource without a run loop, such as the event bus,
// to the tree's lifetime. Serve blocks until the tree stops and then closes
// the resource once.
type CloserService struct {
	closer io.Closer
	name   string
	once   sync.Once
}

// NewCloserService wraps c under name.
func NewCloserService(name string, c io.Closer) *CloserService {
	return &CloserService{closer: c, name: name}
}

// Serve implements suture.Service.
func (s *CloserService) Serve(ctx context.Context) error {
	<-ctx.Done()
	var err error
	s.once.Do(func() {
		err = s.closer.Close()
	})
	if err != nil {
		return fmt.Errorf("close %s: %w", s.name, err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *CloserService) String() string {
	return s.name
}
