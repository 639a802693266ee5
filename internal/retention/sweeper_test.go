// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/metrics"
)

type fakeStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	receive int64
	forward int64
	err     error
}

func (s *fakeStore) DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	if s.err != nil {
		return 0, 0, s.err
	}
	return s.receive, s.forward, nil
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cutoffs)
}

func TestSweep_UsesRetentionCutoff(t *testing.T) {
	store := &fakeStore{receive: 4, forward: 9}
	s := NewSweeper(store, config.RetentionConfig{Days: 7, Interval: time.Hour})
	now := time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	before := testutil.ToFloat64(metrics.RetentionDeleted.WithLabelValues("forward"))
	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	want := time.Date(2026, 5, 13, 10, 0, 0, 0, time.UTC)
	if !res.Cutoff.Equal(want) || !store.cutoffs[0].Equal(want) {
		t.Errorf("Expected cutoff %v, got %v", want, res.Cutoff)
	}
	if res.ReceiveDeleted != 4 || res.ForwardDeleted != 9 {
		t.Errorf("Unexpected result %+v", res)
	}
	if got := testutil.ToFloat64(metrics.RetentionDeleted.WithLabelValues("forward")) - before; got != 9 {
		t.Errorf("Expected forward deletions metric +9, got %v", got)
	}
}

func TestSweep_WrapsStoreError(t *testing.T) {
	cause := errors.New("database is locked")
	s := NewSweeper(&fakeStore{err: cause}, config.RetentionConfig{Days: 1})

	if _, err := s.Sweep(context.Background()); !errors.Is(err, cause) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
}

func TestServe_SweepsOnStartAndInterval(t *testing.T) {
	store := &fakeStore{}
	s := NewSweeper(store, config.RetentionConfig{Days: 7, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for store.calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if store.calls() < 3 {
		t.Errorf("Expected at least 3 sweeps, got %d", store.calls())
	}
}

func TestServe_KeepsRunningAfterFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	s := NewSweeper(store, config.RetentionConfig{Days: 7, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for store.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if store.calls() < 2 {
		t.Errorf("Expected sweeps to continue after an error, got %d", store.calls())
	}
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	s := NewSweeper(&fakeStore{}, config.RetentionConfig{Days: 3})
	if s.interval != time.Hour {
		t.Errorf("Expected default interval 1h, got %v", s.interval)
	}
	if s.maxAge != 72*time.Hour {
		t.Errorf("Expected max age 72h, got %v", s.maxAge)
	}
}
