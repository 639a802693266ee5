// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

// Package retention deletes receive and forward logs once they are older
// than the configured number of days.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/metrics"
)

// Store deletes logs created before cutoff and reports how many rows of
// each kind it removed.
type Store interface {
	DeleteLogsBefore(ctx context.Context, cutoff time.Time) (receive, forward int64, err error)
}

// Result describes one sweep.
type Result struct {
	Cutoff         time.Time
	ReceiveDeleted int64
	ForwardDeleted int64
	Duration       time.Duration
}

// Sweeper runs Sweep on an interval. It implements suture.Service.
type Sweeper struct {
	store    Store
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewSweeper creates a sweeper for cfg.
func NewSweeper(store Store, cfg config.RetentionConfig) *Sweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:    store,
		maxAge:   time.Duration(cfg.Days) * 24 * time.Hour,
		interval: interval,
		now:      time.Now,
	}
}

// Sweep deletes every log older than the retention period once.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	start := time.Now()
	cutoff := s.now().UTC().Add(-s.maxAge)

	receive, forward, err := s.store.DeleteLogsBefore(ctx, cutoff)
	res := Result{
		Cutoff:         cutoff,
		ReceiveDeleted: receive,
		ForwardDeleted: forward,
		Duration:       time.Since(start),
	}
	metrics.RecordRetentionSweep(receive, forward, res.Duration, err)
	if err != nil {
		return res, fmt.Errorf("retention sweep: %w", err)
	}
	return res, nil
}

// Serve sweeps once at startup and then every interval until ctx is canceled.
func (s *Sweeper) Serve(ctx context.Context) error {
	log := logging.WithComponent("retention")
	log.Info().
		Dur("max_age", s.maxAge).
		Dur("interval", s.interval).
		Msg("Retention sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		res, err := s.Sweep(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Error().Err(err).Msg("Retention sweep failed")
		case res.ReceiveDeleted > 0 || res.ForwardDeleted > 0:
			log.Info().
				Time("cutoff", res.Cutoff).
				Int64("receive_logs", res.ReceiveDeleted).
				Int64("forward_logs", res.ForwardDeleted).
				Dur("duration", res.Duration).
				Msg("Deleted expired logs")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Sweeper) String() string {
	return "retention-sweeper"
}
