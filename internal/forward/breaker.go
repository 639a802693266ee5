// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package forward

import (
	"context"
	"errors"
	"sync"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/metrics"
)

// hostGuard paces and circuit-breaks requests to one destination host.
type hostGuard struct {
	breaker *gobreaker.CircuitBreaker[int]
	limiter *rate.Limiter
}

// hostGuards lazily creates one guard per destination host.
type hostGuards struct {
	cfg config.ForwardConfig

	mu     sync.Mutex
	guards map[string]*hostGuard
}

func newHostGuards(cfg config.ForwardConfig) *hostGuards {
	return &hostGuards{cfg: cfg, guards: make(map[string]*hostGuard)}
}

// get returns the guard for host, creating it on first use.
func (g *hostGuards) get(host string) *hostGuard {
	g.mu.Lock()
	defer g.mu.Unlock()

	if guard, ok := g.guards[host]; ok {
		return guard
	}

	limit := rate.Inf
	if g.cfg.HostRateLimit > 0 {
		limit = rate.Limit(g.cfg.HostRateLimit)
	}
	burst := g.cfg.HostRateBurst
	if burst < 1 {
		burst = 1
	}

	guard := &hostGuard{
		breaker: newHostBreaker(host, g.cfg),
		limiter: rate.NewLimiter(limit, burst),
	}
	g.guards[host] = guard
	metrics.CircuitBreakerState.WithLabelValues(host).Set(0)
	return guard
}

// newHostBreaker opens when the failure ratio over the interval reaches
// BreakerFailureRatio with at least BreakerMinRequests requests.
func newHostBreaker(host string, cfg config.ForwardConfig) *gobreaker.CircuitBreaker[int] {
	return gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        host,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,

		// Shutdown cancellation says nothing about the destination.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.BreakerFailureRatio {
				logging.Warn().
					Str("host", host).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("Opening circuit for destination host")
				return true
			}
			return false
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("host", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.RecordBreakerTransition(name, from.String(), to.String(), int(to))
		},
	})
}
