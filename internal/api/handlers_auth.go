// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/splay/internal/auth"
	"github.com/tomtom215/splay/internal/logging"
)

// Signup handles POST /auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	session, err := h.auth.Signup(r.Context(), strings.TrimSpace(req.Email), req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.setSessionCookie(w, session)
	NewResponseWriter(w, r).Created(session)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password, h.authMW.ClientIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.setSessionCookie(w, session)
	WriteSuccess(w, r, session)
}

// Logout handles POST /auth/logout. The token stays revoked until it would
// have expired.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		writeServiceError(w, r, auth.ErrMissingToken)
		return
	}
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.clearSessionCookie(w)
	NewResponseWriter(w, r).NoContent()
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		writeServiceError(w, r, auth.ErrMissingToken)
		return
	}
	session, err := h.auth.Refresh(r.Context(), claims)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.setSessionCookie(w, session)
	WriteSuccess(w, r, session)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		writeServiceError(w, r, auth.ErrMissingToken)
		return
	}
	user, err := h.auth.Me(r.Context(), claims)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, user)
}

// RequestPasswordReset handles POST /auth/password-reset. It answers 204
// whether or not the email is registered.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Password reset request failed")
	}
	NewResponseWriter(w, r).NoContent()
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm.
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.auth.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// AuthProviders handles GET /auth/providers.
func (h *Handler) AuthProviders(w http.ResponseWriter, r *http.Request) {
	names := h.auth.ProviderNames()
	sort.Strings(names)
	WriteSuccess(w, r, map[string]interface{}{"providers": names})
}

// OAuthStart handles GET /auth/oauth/{provider}. The optional redirect
// query parameter is the app path to return to after login.
func (h *Handler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	authURL, err := h.auth.OAuthStart(r.Context(), provider, r.URL.Query().Get("redirect"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// OAuthCallback handles GET /auth/oauth/{provider}/callback. Failures send
// the browser back to the login page with an error code.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()
	log := logging.Ctx(r.Context())

	if providerErr := q.Get("error"); providerErr != "" {
		log.Info().Str("provider", provider).Str("error", sanitizeLogValue(providerErr)).Msg("OAuth login declined")
		http.Redirect(w, r, h.loginURL("oauth_denied"), http.StatusFound)
		return
	}

	session, redirect, err := h.auth.OAuthCallback(r.Context(), provider, q.Get("state"), q.Get("code"))
	if err != nil {
		log.Warn().Err(err).Str("provider", provider).Msg("OAuth callback failed")
		http.Redirect(w, r, h.loginURL("oauth_failed"), http.StatusFound)
		return
	}
	h.setSessionCookie(w, session)
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *Handler) loginURL(code string) string {
	base := ""
	if h.config != nil {
		base = strings.TrimSuffix(h.config.Server.AppURL, "/")
	}
	return base + "/login?error=" + url.QueryEscape(code)
}

func (h *Handler) cookieSecure() bool {
	return h.config != nil && h.config.Security.CookieSecure
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}
