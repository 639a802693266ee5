// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("test message")

	out := buf.String()
	if !strings.Contains(out, "test message") {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("expected level in output, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCtx_AddsIDs(t *testing.T) {
	buf := captureGlobal(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request_id: %s", out)
	}
	if !strings.Contains(out, `"correlation_id":"corr-1"`) {
		t.Errorf("missing correlation_id: %s", out)
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if len(a) != 8 {
		t.Errorf("len = %d, want 8", len(a))
	}
	if a == b {
		t.Error("expected distinct IDs")
	}
}

func TestSlogLogger(t *testing.T) {
	buf := captureGlobal(t)

	NewSlogLogger().With("service", "forwarder").WithGroup("job").Warn("restarting", "attempt", 2)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"service":"forwarder"`, `"job.attempt":2`, "restarting"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestWatermillLogger(t *testing.T) {
	buf := captureGlobal(t)

	wl := NewWatermillLogger().With(watermill.LogFields{"topic": "splay.receive_logs"})
	wl.Error("publish failed", errors.New("boom"), watermill.LogFields{"uuid": "m1"})

	out := buf.String()
	for _, want := range []string{`"topic":"splay.receive_logs"`, `"uuid":"m1"`, `"error":"boom"`, `"component":"events"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := SanitizeValue("a\nb\x00c"); got != "a bc" {
		t.Errorf("SanitizeValue = %q", got)
	}
	if got := SanitizeValue(strings.Repeat("x", 300)); len(got) != maxLogValueLength+3 {
		t.Errorf("SanitizeValue did not truncate, len=%d", len(got))
	}
	if got := SanitizeEmail("alice@example.com"); got != "a***@example.com" {
		t.Errorf("SanitizeEmail = %q", got)
	}
	if got := SanitizeEmail("nope"); got != "***" {
		t.Errorf("SanitizeEmail(nope) = %q", got)
	}
	if got := SanitizeToken("abcdefghijkl"); got != "abcdefgh..." {
		t.Errorf("SanitizeToken = %q", got)
	}
}
