// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package auth

import "errors"

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTokenNotFound      = errors.New("token not found or expired")
	ErrInvalidState       = errors.New("invalid or expired oauth state")
	ErrUnknownProvider    = errors.New("unknown oauth provider")
	ErrOAuthExchange      = errors.New("oauth code exchange failed")

	// ErrAccountLocked is returned when authentication is blocked due to lockout.
	ErrAccountLocked = errors.New("account temporarily locked due to too many failed attempts")
)
