// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package models

import "time"

// User is an account that owns buckets.
//
// PasswordHash is never serialized. OAuth users may have an empty hash and
// can only sign in through their provider until they reset a password.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	EmailVisibility bool      `json:"emailVisibility"`
	Verified        bool      `json:"verified"`
	Name            string    `json:"name"`
	Avatar          string    `json:"avatar"`
	PasswordHash    string    `json:"-"`
	Created         time.Time `json:"created"`
	Updated         time.Time `json:"updated"`
}

// OAuthIdentity is the profile returned by an external login provider.
type OAuthIdentity struct {
	Provider  string
	Subject   string
	Email     string
	Name      string
	AvatarURL string
	Verified  bool
}
