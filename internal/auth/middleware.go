// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/tomtom215/splay/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the authenticated *Claims in the request context.
const ClaimsContextKey contextKey = "claims"

// CookieName is the session cookie set by login and OAuth callbacks.
const CookieName = "splay_token"

// Middleware authenticates API requests.
type Middleware struct {
	jwt            *JWTManager
	tokens         *TokenStore
	trustedProxies map[string]bool
	onFailure      func(w http.ResponseWriter, r *http.Request, err error)
}

// NewMiddleware creates the authentication middleware. onFailure writes the
// 401 response; nil uses a plain http.Error.
func NewMiddleware(jwtManager *JWTManager, tokens *TokenStore, trustedProxies []string, onFailure func(http.ResponseWriter, *http.Request, error)) *Middleware {
	trustedMap := make(map[string]bool, len(trustedProxies))
	for _, proxy := range trustedProxies {
		trustedMap[proxy] = true
	}
	if onFailure == nil {
		onFailure = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
		}
	}
	return &Middleware{
		jwt:            jwtManager,
		tokens:         tokens,
		trustedProxies: trustedMap,
		onFailure:      onFailure,
	}
}

// Authenticate rejects requests without a valid, unrevoked session token and
// stores the claims in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.Verify(r.Context(), TokenFromRequest(r))
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			m.onFailure(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// Verify validates a raw token and checks it against the revocation list.
func (m *Middleware) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := m.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// TokenFromRequest extracts a session token from the Authorization header,
// then the session cookie.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// ContextWithClaims returns a copy of ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext returns the authenticated claims, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}

// UserIDFromContext returns the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

// IsAuthError reports whether err means the caller is unauthenticated.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenRevoked)
}

// SecurityHeaders adds security headers to all responses. The SPA handler
// sets its own Content-Security-Policy.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller's address, honoring X-Forwarded-For and
// X-Real-IP only when the connection comes from a trusted proxy.
func (m *Middleware) ClientIP(r *http.Request) string {
	remoteIP := remoteHost(r.RemoteAddr)
	if len(m.trustedProxies) == 0 || !m.trustedProxies[remoteIP] {
		return remoteIP
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return remoteIP
}

// RealIP rewrites r.RemoteAddr to ClientIP so per-IP rate limits and
// request logs key on the caller. Forwarding headers sent by peers outside
// the trusted proxy list are ignored.
func (m *Middleware) RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := m.ClientIP(r); ip != remoteHost(r.RemoteAddr) {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
