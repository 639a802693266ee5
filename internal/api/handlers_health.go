// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/splay/internal/forward"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status            string         `json:"status"`
	Version           string         `json:"version,omitempty"`
	DatabaseConnected bool           `json:"database_connected"`
	WebSocketClients  int            `json:"websocket_clients"`
	Forwarder         *forward.Stats `json:"forwarder,omitempty"`
	Uptime            float64        `json:"uptime"`
}

// Health handles GET /health. The status is "degraded" and the code 503
// when the database does not answer a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbConnected := h.store != nil && h.store.Ping(ctx) == nil

	health := HealthStatus{
		Status:            "healthy",
		Version:           h.appVersion,
		DatabaseConnected: dbConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.wsHub != nil {
		health.WebSocketClients = h.wsHub.GetClientCount()
	}
	if h.forwarder != nil {
		stats := h.forwarder.Stats()
		health.Forwarder = &stats
	}

	rw := NewResponseWriter(w, r)
	if !dbConnected {
		health.Status = "degraded"
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: health, Meta: rw.meta()})
		return
	}
	rw.Success(health)
}
