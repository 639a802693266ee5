// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/splay/internal/logging"
)

// Key prefixes for BadgerDB storage
const (
	revokedKeyPrefix = "revoked:"
	resetKeyPrefix   = "reset:"
	stateKeyPrefix   = "oauth_state:"
)

// Token lifetimes.
const (
	ResetTokenTTL = time.Hour
	OAuthStateTTL = 10 * time.Minute
)

// OAuthState is stored under the state parameter while the user is at the
// provider.
type OAuthState struct {
	Provider  string    `json:"provider"`
	Redirect  string    `json:"redirect,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenStore keeps short-lived security tokens in BadgerDB: revoked session
// IDs, single-use password reset tokens and OAuth state. Every entry carries
// a TTL so expired keys disappear without a sweeper.
type TokenStore struct {
	db         *badger.DB
	inMemory   bool
	gcInterval time.Duration
}

// NewTokenStore opens a BadgerDB at path, or an in-memory one when path is
// empty.
func NewTokenStore(path string) (*TokenStore, error) {
	opts := badger.DefaultOptions(path)
	inMemory := path == ""
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Small values; the default 1GB value log is wasteful here.
		opts.ValueLogFileSize = 16 << 20
		opts.SyncWrites = true
	}
	opts = opts.WithLogger(newBadgerLogger())

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger token store: %w", err)
	}
	return &TokenStore{db: db, inMemory: inMemory, gcInterval: 10 * time.Minute}, nil
}

// Close closes the underlying BadgerDB.
func (s *TokenStore) Close() error {
	return s.db.Close()
}

func (s *TokenStore) set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
}

// take reads and deletes key in one transaction.
func (s *TokenStore) take(key string) ([]byte, error) {
	var value []byte
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		if value, err = item.ValueCopy(nil); err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		return txn.Delete([]byte(key))
	})
	return value, err
}

// Revoke marks a session jti as revoked for ttl, normally the token's
// remaining lifetime. Non-positive ttl is a no-op since the token is already
// expired.
func (s *TokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("jti cannot be empty")
	}
	if err := s.set(revokedKeyPrefix+jti, []byte{1}, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (s *TokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(revokedKeyPrefix + jti))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check revocation: %w", err)
	}
}

// CreateResetToken issues a single-use password reset token for userID.
func (s *TokenStore) CreateResetToken(ctx context.Context, userID string) (string, error) {
	token, err := generateSecureRandom(32)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.set(resetKeyPrefix+token, []byte(userID), ResetTokenTTL); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

// ConsumeResetToken returns the user a reset token was issued for and
// deletes it. Unknown, used and expired tokens yield ErrTokenNotFound.
func (s *TokenStore) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrTokenNotFound
	}
	value, err := s.take(resetKeyPrefix + token)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// SaveOAuthState stores state under key for OAuthStateTTL.
func (s *TokenStore) SaveOAuthState(ctx context.Context, key string, state *OAuthState) error {
	if key == "" {
		return errors.New("state key cannot be empty")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.set(stateKeyPrefix+key, data, OAuthStateTTL); err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	return nil
}

// ConsumeOAuthState returns and deletes the state stored under key.
func (s *TokenStore) ConsumeOAuthState(ctx context.Context, key string) (*OAuthState, error) {
	if key == "" {
		return nil, ErrInvalidState
	}
	value, err := s.take(stateKeyPrefix + key)
	if errors.Is(err, ErrTokenNotFound) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	var state OAuthState
	if err := json.Unmarshal(value, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &state, nil
}

// Serve runs value log garbage collection until ctx is canceled. It is a
// suture service; in-memory stores just wait.
func (s *TokenStore) Serve(ctx context.Context) error {
	if s.inMemory {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runGC()
		}
	}
}

func (s *TokenStore) runGC() {
	for {
		err := s.db.RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			logging.Warn().Err(err).Msg("Token store value log GC failed")
		}
		return
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *TokenStore) String() string {
	return "token-store"
}

// generateSecureRandom returns n random bytes, base64url encoded.
func generateSecureRandom(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// badgerLogger routes BadgerDB's internal logs to zerolog. Info and debug
// output is dropped.
type badgerLogger struct {
	log zerolog.Logger
}

func newBadgerLogger() *badgerLogger {
	return &badgerLogger{log: logging.WithComponent("badger")}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l *badgerLogger) Infof(string, ...interface{})  {}
func (l *badgerLogger) Debugf(string, ...interface{}) {}
