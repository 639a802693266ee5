// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package auth provides authentication for the Splay API.

Sessions are HS256 JWTs carrying the user ID, email and a jti. They are read
from an Authorization: Bearer header or the splay_token cookie. Logout and
refresh revoke the jti in a BadgerDB-backed TokenStore for the rest of the
token's lifetime, and the same store holds single-use password reset tokens
and OAuth state, each with its own TTL.

Login Flow:

  - Password: Service.Login checks the per-email lockout, verifies the
    bcrypt hash and issues a session. Five failures lock the email for the
    configured period, doubling on each repeat lockout.
  - OAuth: Service.OAuthStart saves a random state and returns the
    provider's consent URL. Service.OAuthCallback consumes the state,
    exchanges the code and resolves the identity through
    database.FindOrCreateOAuthUser.

Providers:

Any provider name other than "github" is an OIDC issuer handled by the
zitadel relying party, so Google and self-hosted issuers need no code.
GitHub has no OIDC discovery and uses golang.org/x/oauth2 plus the GitHub
user and email APIs.

Background Services:

TokenStore and LockoutManager both implement suture.Service: the former
runs BadgerDB value log GC, the latter drops stale lockout entries.
*/
package auth
