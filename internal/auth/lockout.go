// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/splay/internal/logging"
)

// LockoutConfig holds configuration for the login lockout.
type LockoutConfig struct {
	// MaxAttempts is the number of failed attempts before lockout.
	MaxAttempts int

	// LockoutDuration is the base lockout period.
	LockoutDuration time.Duration

	// EnableExponentialBackoff doubles the lockout period on each subsequent lockout.
	EnableExponentialBackoff bool

	// MaxLockoutDuration caps the lockout period when using exponential backoff.
	MaxLockoutDuration time.Duration

	// CleanupInterval is how often to run expired lockout cleanup.
	CleanupInterval time.Duration

	Enabled bool
}

// DefaultLockoutConfig returns sensible defaults.
func DefaultLockoutConfig() *LockoutConfig {
	return &LockoutConfig{
		MaxAttempts:              5,
		LockoutDuration:          15 * time.Minute,
		EnableExponentialBackoff: true,
		MaxLockoutDuration:       24 * time.Hour,
		CleanupInterval:          5 * time.Minute,
		Enabled:                  true,
	}
}

// LockoutEntry tracks failed login attempts for one email address.
type LockoutEntry struct {
	Subject        string
	FailedAttempts int
	LastAttempt    time.Time
	LockoutCount   int // Number of times locked out (for exponential backoff)
	LockedUntil    time.Time
	LastFailedIP   string
}

// IsLocked returns true if the entry is currently locked out.
func (e *LockoutEntry) IsLocked() bool {
	return time.Now().Before(e.LockedUntil)
}

// LockoutStore persists lockout state.
type LockoutStore interface {
	GetEntry(ctx context.Context, subject string) (*LockoutEntry, error)
	SaveEntry(ctx context.Context, entry *LockoutEntry) error
	DeleteEntry(ctx context.Context, subject string) error
	CleanupExpired(ctx context.Context) (int, error)
}

// ErrLockoutNotFound is returned when a lockout entry doesn't exist.
var ErrLockoutNotFound = errors.New("lockout entry not found")

// LockoutManager locks an email after repeated failed logins.
type LockoutManager struct {
	config *LockoutConfig
	store  LockoutStore
}

// NewLockoutManager creates a new lockout manager.
func NewLockoutManager(store LockoutStore, config *LockoutConfig) *LockoutManager {
	if config == nil {
		config = DefaultLockoutConfig()
	}
	if store == nil {
		store = NewMemoryLockoutStore()
	}
	return &LockoutManager{config: config, store: store}
}

// CheckLocked reports whether subject is locked and for how long.
func (m *LockoutManager) CheckLocked(ctx context.Context, subject string) (bool, time.Duration, error) {
	if !m.config.Enabled {
		return false, 0, nil
	}

	entry, err := m.store.GetEntry(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrLockoutNotFound) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("check lockout: %w", err)
	}
	if !entry.IsLocked() {
		return false, 0, nil
	}
	return true, time.Until(entry.LockedUntil), nil
}

// RecordFailedAttempt records a failed login and reports whether subject is
// now locked.
func (m *LockoutManager) RecordFailedAttempt(ctx context.Context, subject, ip string) (locked bool, remaining time.Duration, err error) {
	if !m.config.Enabled {
		return false, 0, nil
	}

	entry, err := m.store.GetEntry(ctx, subject)
	if err != nil && !errors.Is(err, ErrLockoutNotFound) {
		return false, 0, fmt.Errorf("get entry: %w", err)
	}
	if entry == nil {
		entry = &LockoutEntry{Subject: subject}
	}

	if entry.IsLocked() {
		return true, time.Until(entry.LockedUntil), nil
	}

	now := time.Now()
	entry.FailedAttempts++
	entry.LastAttempt = now
	entry.LastFailedIP = ip

	if entry.FailedAttempts < m.config.MaxAttempts {
		if err := m.store.SaveEntry(ctx, entry); err != nil {
			return false, 0, fmt.Errorf("save entry: %w", err)
		}
		return false, 0, nil
	}

	duration := calculateLockoutDuration(m.config, entry.LockoutCount)
	entry.LockedUntil = now.Add(duration)
	entry.LockoutCount++
	entry.FailedAttempts = 0

	logging.Warn().
		Str("subject", logging.SanitizeEmail(subject)).
		Dur("duration", duration).
		Int("lockout_count", entry.LockoutCount).
		Msg("Account locked")

	if err := m.store.SaveEntry(ctx, entry); err != nil {
		return false, 0, fmt.Errorf("save locked entry: %w", err)
	}
	return true, duration, nil
}

// calculateLockoutDuration computes the lockout duration with optional exponential backoff.
func calculateLockoutDuration(config *LockoutConfig, lockoutCount int) time.Duration {
	duration := config.LockoutDuration
	if !config.EnableExponentialBackoff || lockoutCount == 0 {
		return duration
	}

	duration = time.Duration(int64(duration) * int64(1<<lockoutCount))
	if config.MaxLockoutDuration > 0 && duration > config.MaxLockoutDuration {
		return config.MaxLockoutDuration
	}
	return duration
}

// RecordSuccessfulLogin clears the lockout state for subject.
func (m *LockoutManager) RecordSuccessfulLogin(ctx context.Context, subject string) error {
	if !m.config.Enabled {
		return nil
	}
	if err := m.store.DeleteEntry(ctx, subject); err != nil && !errors.Is(err, ErrLockoutNotFound) {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

// Serve removes stale entries every CleanupInterval until ctx is canceled.
func (m *LockoutManager) Serve(ctx context.Context) error {
	interval := m.config.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := m.store.CleanupExpired(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Lockout cleanup error")
				continue
			}
			if count > 0 {
				logging.Debug().Int("count", count).Msg("Cleaned up expired lockout entries")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (m *LockoutManager) String() string {
	return "lockout-cleanup"
}

// MemoryLockoutStore implements LockoutStore using in-memory storage.
type MemoryLockoutStore struct {
	entries map[string]*LockoutEntry
	mu      sync.RWMutex
}

// NewMemoryLockoutStore creates a new in-memory lockout store.
func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{
		entries: make(map[string]*LockoutEntry),
	}
}

// GetEntry retrieves a lockout entry.
func (s *MemoryLockoutStore) GetEntry(ctx context.Context, subject string) (*LockoutEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[subject]
	if !ok {
		return nil, ErrLockoutNotFound
	}
	copied := *entry
	return &copied, nil
}

// SaveEntry persists a lockout entry.
func (s *MemoryLockoutStore) SaveEntry(ctx context.Context, entry *LockoutEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries[entry.Subject] = &copied
	return nil
}

// DeleteEntry removes a lockout entry.
func (s *MemoryLockoutStore) DeleteEntry(ctx context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[subject]; !ok {
		return ErrLockoutNotFound
	}
	delete(s.entries, subject)
	return nil
}

// CleanupExpired removes unlocked entries idle for more than 24h.
func (s *MemoryLockoutStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-24 * time.Hour)
	count := 0
	for subject, entry := range s.entries {
		if !entry.IsLocked() && entry.LastAttempt.Before(threshold) {
			delete(s.entries, subject)
			count++
		}
	}
	return count, nil
}
