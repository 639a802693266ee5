// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/buckets", "200"))
	RecordAPIRequest("GET", "/api/v1/buckets", "200", 25*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/buckets", "200"))

	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("Expected %v in flight, got %v", before+1, got)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("Expected %v in flight, got %v", before, got)
	}
}

func TestRecordForwardAttempt(t *testing.T) {
	tests := []struct {
		outcome  string
		duration time.Duration
	}{
		{OutcomeSuccess, 30 * time.Millisecond},
		{OutcomeHTTPError, 40 * time.Millisecond},
		{OutcomeTransportError, 10 * time.Second},
		{OutcomeBreakerOpen, 0},
		{OutcomeQueueFull, 0},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			before := testutil.ToFloat64(ForwardAttempts.WithLabelValues(tt.outcome))
			RecordForwardAttempt(tt.outcome, tt.duration)
			after := testutil.ToFloat64(ForwardAttempts.WithLabelValues(tt.outcome))
			if after-before != 1 {
				t.Errorf("Expected %s attempts to increase by 1, got %v", tt.outcome, after-before)
			}
		})
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	RecordBreakerTransition("hooks.example.com", "closed", "open", 2)

	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("hooks.example.com")); got != 2 {
		t.Errorf("Expected breaker state 2, got %v", got)
	}

	RecordBreakerTransition("hooks.example.com", "open", "half-open", 1)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("hooks.example.com")); got != 1 {
		t.Errorf("Expected breaker state 1, got %v", got)
	}
}

func TestRecordLogin(t *testing.T) {
	success := testutil.ToFloat64(LoginAttempts.WithLabelValues("password", "success"))
	failure := testutil.ToFloat64(LoginAttempts.WithLabelValues("password", "failure"))

	RecordLogin("password", true)
	RecordLogin("password", false)
	RecordLogin("password", false)

	if got := testutil.ToFloat64(LoginAttempts.WithLabelValues("password", "success")) - success; got != 1 {
		t.Errorf("Expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(LoginAttempts.WithLabelValues("password", "failure")) - failure; got != 2 {
		t.Errorf("Expected 2 failures, got %v", got)
	}
}

func TestRecordEventPublish(t *testing.T) {
	topic := "splay.test_topic"
	RecordEventPublish(topic, nil)
	RecordEventPublish(topic, errors.New("nats unavailable"))

	if got := testutil.ToFloat64(EventsPublished.WithLabelValues(topic)); got != 1 {
		t.Errorf("Expected 1 published, got %v", got)
	}
	if got := testutil.ToFloat64(EventPublishErrors.WithLabelValues(topic)); got != 1 {
		t.Errorf("Expected 1 publish error, got %v", got)
	}
}

func TestRecordRetentionSweep(t *testing.T) {
	receive := testutil.ToFloat64(RetentionDeleted.WithLabelValues("receive"))
	forward := testutil.ToFloat64(RetentionDeleted.WithLabelValues("forward"))

	RecordRetentionSweep(3, 7, time.Second, nil)
	RecordRetentionSweep(100, 100, time.Second, errors.New("database locked"))

	if got := testutil.ToFloat64(RetentionDeleted.WithLabelValues("receive")) - receive; got != 3 {
		t.Errorf("Expected 3 receive deletions, got %v", got)
	}
	if got := testutil.ToFloat64(RetentionDeleted.WithLabelValues("forward")) - forward; got != 7 {
		t.Errorf("Expected 7 forward deletions, got %v", got)
	}
	if testutil.ToFloat64(RetentionLastSuccess) == 0 {
		t.Error("Expected last success timestamp to be set")
	}
}

func TestRecordWebhook(t *testing.T) {
	before := testutil.ToFloat64(WebhooksReceived.WithLabelValues("bad_request"))
	RecordWebhook("bad_request", 0)
	RecordWebhook("stored", 512)

	if got := testutil.ToFloat64(WebhooksReceived.WithLabelValues("bad_request")) - before; got != 1 {
		t.Errorf("Expected 1 bad request, got %v", got)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordAPIRequest("POST", "/buckets/{slug}", "200", time.Millisecond)
			RecordForwardAttempt(OutcomeSuccess, time.Millisecond)
			TrackActiveRequest(true)
			TrackActiveRequest(false)
		}()
	}
	wg.Wait()
}

func TestMetricGathering(t *testing.T) {
	RecordAPIRequest("GET", "/api/v1/health", "200", time.Millisecond)
	SetAppInfo("test", "go1.24")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	want := map[string]bool{
		"splay_http_requests_total": false,
		"splay_app_info":            false,
	}
	for _, mf := range families {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Expected metric %s to be registered", name)
		}
	}
}
