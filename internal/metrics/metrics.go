// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Forward attempt outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeHTTPError      = "http_error"
	OutcomeTransportError = "transport_error"
	OutcomeBreakerOpen    = "breaker_open"
	OutcomeQueueFull      = "queue_full"
)

var (
	// HTTP Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "splay_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "splay_http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_rate_limit_hits_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"limiter"}, // "api", "receive"
	)

	// Receiver Metrics
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_webhooks_received_total",
			Help: "Total number of webhook deliveries received",
		},
		[]string{"result"}, // "stored", "bad_request", "unknown_bucket", "error"
	)

	WebhookBodyBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "splay_webhook_body_bytes",
			Help:    "Size of received webhook bodies",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	// Forward Metrics
	ForwardAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_forward_attempts_total",
			Help: "Total number of forward attempts by outcome",
		},
		[]string{"outcome"},
	)

	ForwardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "splay_forward_duration_seconds",
			Help:    "Duration of forward requests in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	ForwardQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "splay_forward_queue_depth",
			Help: "Number of jobs waiting for a forward worker",
		},
	)

	ForwardRetryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "splay_forward_retry_queue_depth",
			Help: "Number of forward jobs waiting for a retry",
		},
	)

	ForwardRetriesScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splay_forward_retries_scheduled_total",
			Help: "Total number of forward retries scheduled",
		},
	)

	ForwardGiveUps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splay_forward_give_ups_total",
			Help: "Total number of forward jobs abandoned after max retries",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "splay_circuit_breaker_state",
			Help: "Circuit breaker state per destination host (0=closed, 1=half-open, 2=open)",
		},
		[]string{"host"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"host", "from", "to"},
	)

	// Auth Metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"method", "result"}, // method: "password", "oauth", "signup"
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_events_published_total",
			Help: "Total number of events published",
		},
		[]string{"topic"},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_event_publish_errors_total",
			Help: "Total number of failed event publishes",
		},
		[]string{"topic"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_events_consumed_total",
			Help: "Total number of events handled by a subscriber",
		},
		[]string{"topic", "consumer"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "splay_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splay_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splay_websocket_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped for slow clients",
		},
	)

	// Retention Metrics
	RetentionDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splay_retention_deleted_total",
			Help: "Total number of log rows removed by the retention sweeper",
		},
		[]string{"kind"}, // "receive", "forward"
	)

	RetentionSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "splay_retention_sweep_duration_seconds",
			Help:    "Duration of retention sweeps in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RetentionLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "splay_retention_last_success_timestamp",
			Help: "Unix timestamp of the last successful retention sweep",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "splay_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "splay_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a request rejected by limiter.
func RecordRateLimitHit(limiter string) {
	APIRateLimitHits.WithLabelValues(limiter).Inc()
}

// RecordWebhook counts a receiver result and, for stored webhooks, the body size.
func RecordWebhook(result string, bodySize int) {
	WebhooksReceived.WithLabelValues(result).Inc()
	if result == "stored" {
		WebhookBodyBytes.Observe(float64(bodySize))
	}
}

// RecordForwardAttempt records one forward attempt. duration is zero for
// attempts that never reached the network.
func RecordForwardAttempt(outcome string, duration time.Duration) {
	ForwardAttempts.WithLabelValues(outcome).Inc()
	if duration > 0 {
		ForwardDuration.Observe(duration.Seconds())
	}
}

// RecordBreakerTransition records a breaker state change for host. State
// values follow gobreaker's ordering.
func RecordBreakerTransition(host, from, to string, toValue int) {
	CircuitBreakerTransitions.WithLabelValues(host, from, to).Inc()
	CircuitBreakerState.WithLabelValues(host).Set(float64(toValue))
}

// RecordLogin records a login attempt.
func RecordLogin(method string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	LoginAttempts.WithLabelValues(method, result).Inc()
}

// RecordEventPublish records a publish on topic.
func RecordEventPublish(topic string, err error) {
	if err != nil {
		EventPublishErrors.WithLabelValues(topic).Inc()
		return
	}
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventConsumed records an event handled by consumer.
func RecordEventConsumed(topic, consumer string) {
	EventsConsumed.WithLabelValues(topic, consumer).Inc()
}

// RecordRetentionSweep records the outcome of a retention sweep.
func RecordRetentionSweep(receive, forward int64, duration time.Duration, err error) {
	RetentionSweepDuration.Observe(duration.Seconds())
	if err != nil {
		return
	}
	RetentionDeleted.WithLabelValues("receive").Add(float64(receive))
	RetentionDeleted.WithLabelValues("forward").Add(float64(forward))
	RetentionLastSuccess.Set(float64(time.Now().Unix()))
}

// SetAppInfo publishes the build information gauge.
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}

// StartUptime updates AppUptime until stop is closed.
func StartUptime(start time.Time, stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	AppUptime.Set(time.Since(start).Seconds())
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			AppUptime.Set(time.Since(start).Seconds())
		}
	}
}
