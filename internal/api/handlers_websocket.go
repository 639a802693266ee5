// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/splay/internal/auth"
	"github.com/tomtom215/splay/internal/logging"
	ws "github.com/tomtom215/splay/internal/websocket"
)

// getUpgrader returns a websocket upgrader that only accepts the app's own
// origin and the configured CORS origins.
func (h *Handler) getUpgrader() websocket.Upgrader {
	var allowed []string
	if h.config != nil {
		allowed = h.config.Security.CORSOrigins
	}
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			return checkWebSocketOrigin(r, allowed)
		},
	}
}

// checkWebSocketOrigin accepts same-host origins, configured origins and
// "*". A missing Origin header is rejected; browsers always send it.
func checkWebSocketOrigin(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), origin) {
			return true
		}
	}
	return false
}

// WebSocket handles GET /ws. Browsers cannot set headers on the handshake,
// so the session token is accepted from the token query parameter as well
// as the cookie and Authorization header.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.TokenFromRequest(r)
	}
	claims, err := h.authMW.Verify(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn, claims.UserID)
	h.wsHub.Register <- client
	client.Start()

	logging.Ctx(r.Context()).Debug().Str("user_id", claims.UserID).Msg("WebSocket client connected")
}
