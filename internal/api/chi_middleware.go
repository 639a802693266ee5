// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/metrics"
)

// Rate limiter names used as metric labels.
const (
	limiterAPI     = "api"
	limiterReceive = "receive"
)

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	// CORS configuration
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSExposedHeaders   []string
	CORSAllowCredentials bool
	CORSMaxAge           int // seconds

	// Rate limiting configuration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool

	// Webhook receiver limit, tracked apart from the API limit.
	ReceiveLimitRequests int
	ReceiveLimitWindow   time.Duration
}

// DefaultChiMiddlewareConfig returns a secure default configuration.
// CORS origins default to empty, requiring explicit configuration.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins:   []string{},
		CORSAllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		CORSExposedHeaders:   []string{"X-Request-ID"},
		CORSAllowCredentials: true,
		CORSMaxAge:           86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,

		ReceiveLimitRequests: 150,
		ReceiveLimitWindow:   3 * time.Second,
	}
}

// ChiMiddlewareConfigFromSecurity maps the security section onto the
// middleware configuration.
func ChiMiddlewareConfigFromSecurity(sec config.SecurityConfig) *ChiMiddlewareConfig {
	c := DefaultChiMiddlewareConfig()
	c.CORSAllowedOrigins = sec.CORSOrigins
	// Credentialed CORS is invalid with a wildcard origin.
	for _, o := range sec.CORSOrigins {
		if o == "*" {
			c.CORSAllowCredentials = false
		}
	}
	if sec.RateLimitReqs > 0 {
		c.RateLimitRequests = sec.RateLimitReqs
	}
	if sec.RateLimitWindow > 0 {
		c.RateLimitWindow = sec.RateLimitWindow
	}
	if sec.ReceiveRateLimitReqs > 0 {
		c.ReceiveLimitRequests = sec.ReceiveRateLimitReqs
	}
	if sec.ReceiveRateLimitWindow > 0 {
		c.ReceiveLimitWindow = sec.ReceiveRateLimitWindow
	}
	c.RateLimitDisabled = sec.RateLimitDisabled
	return c
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   config.CORSAllowedMethods,
		AllowedHeaders:   config.CORSAllowedHeaders,
		ExposedHeaders:   config.CORSExposedHeaders,
		AllowCredentials: config.CORSAllowCredentials,
		MaxAge:           config.CORSMaxAge,
	})

	return &ChiMiddleware{
		config: config,
		cors:   corsHandler,
	}
}

// CORS returns the go-chi/cors middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimitAPI limits /api/v1 requests per client IP.
func (m *ChiMiddleware) RateLimitAPI() func(http.Handler) http.Handler {
	return m.limit(limiterAPI, m.config.RateLimitRequests, m.config.RateLimitWindow)
}

// RateLimitReceive limits webhook deliveries per sender IP.
func (m *ChiMiddleware) RateLimitReceive() func(http.Handler) http.Handler {
	return m.limit(limiterReceive, m.config.ReceiveLimitRequests, m.config.ReceiveLimitWindow)
}

func (m *ChiMiddleware) limit(name string, requests int, window time.Duration) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled || requests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitHit(name)
			logging.Ctx(r.Context()).Debug().Str("limiter", name).Str("path", sanitizeLogValue(r.URL.Path)).Msg("Rate limit exceeded")
			NewResponseWriter(w, r).TooManyRequests("Too many requests.")
		}),
	)
}
