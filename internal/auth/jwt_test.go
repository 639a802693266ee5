// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/models"
)

const testSecret = "test-secret-with-at-least-32-characters!!"

func newTestJWTManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: timeout}, "splay-test")
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return m
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{SessionTimeout: time.Hour}, "splay"); err == nil {
		t.Error("Expected error for empty secret")
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := newTestJWTManager(t, time.Hour)
	user := &models.User{ID: "user-1", Email: "a@example.com"}

	token, claims, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if claims.ID == "" {
		t.Error("Expected a jti")
	}

	got, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got.UserID != "user-1" || got.Email != "a@example.com" || got.Subject != "user-1" {
		t.Errorf("Unexpected claims: %+v", got)
	}
	if got.ID != claims.ID {
		t.Errorf("Expected jti %s, got %s", claims.ID, got.ID)
	}
	if r := got.Remaining(); r <= 0 || r > time.Hour {
		t.Errorf("Unexpected remaining lifetime %v", r)
	}
}

func TestJWTManager_UniqueJTI(t *testing.T) {
	m := newTestJWTManager(t, time.Hour)
	user := &models.User{ID: "user-1"}

	_, c1, _ := m.GenerateToken(user)
	_, c2, _ := m.GenerateToken(user)
	if c1.ID == c2.ID {
		t.Error("Expected distinct jti per token")
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m := newTestJWTManager(t, time.Hour)
	user := &models.User{ID: "user-1"}

	valid, _, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	expired, _, err := newTestJWTManager(t, -time.Minute).GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other, err := NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("z", 40), SessionTimeout: time.Hour}, "x")
	if err != nil {
		t.Fatal(err)
	}
	wrongKey, _, _ := other.GenerateToken(user)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{ID: "x"}})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"tampered", valid[:len(valid)-2] + "xx"},
		{"expired", expired},
		{"wrong key", wrongKey},
		{"alg none", noneToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
