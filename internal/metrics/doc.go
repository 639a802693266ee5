// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed at /metrics in Prometheus text format:

	curl http://localhost:8090/metrics

# Available Metrics

HTTP Metrics:
  - splay_http_requests_total: Total HTTP requests (counter)
    Labels: method, route, status
  - splay_http_request_duration_seconds: Request latency (histogram)
  - splay_http_requests_in_flight: Active requests (gauge)
  - splay_rate_limit_hits_total: Rejected requests (counter)
    Labels: limiter (api, receive)

Receiver Metrics:
  - splay_webhooks_received_total: Webhooks by result (counter)
  - splay_webhook_body_bytes: Stored body sizes (histogram)

Forward Metrics:
  - splay_forward_attempts_total: Attempts by outcome (counter)
    Labels: outcome (success, http_error, transport_error, breaker_open, queue_full)
  - splay_forward_duration_seconds: Destination latency (histogram)
  - splay_forward_queue_depth: Jobs waiting for a worker (gauge)
  - splay_forward_retry_queue_depth: Jobs waiting for a retry (gauge)
  - splay_circuit_breaker_state: Breaker state per host (gauge)
    Values: 0=closed, 1=half-open, 2=open

Auth, event bus, websocket and retention collectors follow the same naming.
The route label is the chi route pattern, not the raw path, so bucket slugs
and IDs never become label values.
*/
package metrics
