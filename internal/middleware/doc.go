// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package middleware provides HTTP middleware components for the chi router.

Key Components:

  - RequestID: UUID-based request tracking, propagated to logging.Ctx
  - RequestLogger: zerolog access log, level chosen by status class
  - PrometheusMetrics: request count, latency and in-flight gauge labeled
    by chi route pattern

Authentication and security headers live in the auth package. The typical
stack, outermost first:

	r.Use(middleware.RequestID)
	r.Use(authMW.RealIP) // honors X-Forwarded-For from trusted proxies only
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
