// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package auth

import (
	"context"
	"testing"
	"time"
)

func TestLockoutManager_LocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultLockoutConfig()
	cfg.MaxAttempts = 3
	m := NewLockoutManager(nil, cfg)

	for i := 1; i < 3; i++ {
		locked, _, err := m.RecordFailedAttempt(ctx, "a@example.com", "10.0.0.1")
		if err != nil {
			t.Fatalf("RecordFailedAttempt: %v", err)
		}
		if locked {
			t.Fatalf("Locked after %d attempts, want 3", i)
		}
	}

	locked, duration, err := m.RecordFailedAttempt(ctx, "a@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("RecordFailedAttempt: %v", err)
	}
	if !locked || duration != cfg.LockoutDuration {
		t.Errorf("Expected lock for %v, got locked=%v duration=%v", cfg.LockoutDuration, locked, duration)
	}

	isLocked, remaining, err := m.CheckLocked(ctx, "a@example.com")
	if err != nil || !isLocked || remaining <= 0 {
		t.Errorf("Expected locked with remaining time, got %v %v %v", isLocked, remaining, err)
	}

	if isLocked, _, _ := m.CheckLocked(ctx, "b@example.com"); isLocked {
		t.Error("Expected other emails to be unaffected")
	}
}

func TestLockoutManager_SuccessClears(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultLockoutConfig()
	cfg.MaxAttempts = 2
	m := NewLockoutManager(nil, cfg)

	m.RecordFailedAttempt(ctx, "a@example.com", "")
	if err := m.RecordSuccessfulLogin(ctx, "a@example.com"); err != nil {
		t.Fatalf("RecordSuccessfulLogin: %v", err)
	}
	locked, _, _ := m.RecordFailedAttempt(ctx, "a@example.com", "")
	if locked {
		t.Error("Expected counter to restart after a successful login")
	}
	if err := m.RecordSuccessfulLogin(ctx, "never-seen@example.com"); err != nil {
		t.Errorf("Expected no error for unknown subject, got %v", err)
	}
}

func TestLockoutManager_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultLockoutConfig()
	cfg.Enabled = false
	cfg.MaxAttempts = 1
	m := NewLockoutManager(nil, cfg)

	locked, _, _ := m.RecordFailedAttempt(ctx, "a@example.com", "")
	if locked {
		t.Error("Disabled lockout must never lock")
	}
}

func TestCalculateLockoutDuration(t *testing.T) {
	cfg := &LockoutConfig{
		LockoutDuration:          time.Minute,
		EnableExponentialBackoff: true,
		MaxLockoutDuration:       10 * time.Minute,
	}

	tests := []struct {
		count int
		want  time.Duration
	}{
		{0, time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
		{4, 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := calculateLockoutDuration(cfg, tt.count); got != tt.want {
			t.Errorf("count %d: expected %v, got %v", tt.count, tt.want, got)
		}
	}

	cfg.EnableExponentialBackoff = false
	if got := calculateLockoutDuration(cfg, 3); got != time.Minute {
		t.Errorf("Expected flat duration without backoff, got %v", got)
	}
}

func TestMemoryLockoutStore_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLockoutStore()

	store.SaveEntry(ctx, &LockoutEntry{Subject: "stale", LastAttempt: time.Now().Add(-48 * time.Hour)})
	store.SaveEntry(ctx, &LockoutEntry{Subject: "fresh", LastAttempt: time.Now()})
	store.SaveEntry(ctx, &LockoutEntry{
		Subject:     "locked",
		LastAttempt: time.Now().Add(-48 * time.Hour),
		LockedUntil: time.Now().Add(time.Hour),
	})

	count, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 entry removed, got %d", count)
	}
	if _, err := store.GetEntry(ctx, "stale"); err != ErrLockoutNotFound {
		t.Errorf("Expected stale entry gone, got %v", err)
	}
	if _, err := store.GetEntry(ctx, "locked"); err != nil {
		t.Errorf("Expected locked entry kept, got %v", err)
	}
}
