// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/metrics"
	"github.com/tomtom215/splay/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication. Log events use the event type
// (receive_log.created, forward_log.created) as the message type.
const (
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeConnected = "connected"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// delivery is a message addressed to one user's clients.
type delivery struct {
	userID  string
	message Message
}

// Hub tracks connected clients by user and delivers each message only to
// the clients of the user it is addressed to.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan delivery
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan delivery, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve runs the hub until ctx is canceled, then closes every client. It
// implements suture.Service.
//
// Register and Unregister are drained before broadcasts so a client that
// just connected sees the next message.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("user_id", client.userID).Int("total_clients", total).Msg("websocket client connected")

	select {
	case client.send <- Message{Type: MessageTypeConnected, Data: map[string]string{"user": client.userID}}:
	default:
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("user_id", client.userID).Int("total_clients", total).Msg("websocket client disconnected")
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	// ctx.Err() is expected here and is not logged as an error.
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// deliver sends d to its user's clients in ID order. Clients whose send
// buffer is full are disconnected.
func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if client.userID == d.userID {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		select {
		case client.send <- d.message:
		default:
			metrics.WSMessagesDropped.Inc()
			logging.Warn().Str("user_id", client.userID).Uint64("client_id", client.id).Msg("websocket client too slow, disconnecting")
			close(client.send)
			delete(h.clients, client)
		}
	}
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// closeAllClients closes every client in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// BroadcastToUser queues message for every client of userID. It never
// blocks; when the hub is backed up the message is dropped.
func (h *Hub) BroadcastToUser(userID string, message Message) {
	select {
	case h.broadcast <- delivery{userID: userID, message: message}:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("message_type", message.Type).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastLogEvent delivers event to the clients of its owner.
func (h *Hub) BroadcastLogEvent(event *models.LogEvent) {
	if event.Owner == "" {
		logging.Warn().Str("type", event.Type).Msg("log event without owner, not broadcasting")
		return
	}
	h.BroadcastToUser(event.Owner, Message{Type: event.Type, Data: event})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserClientCount returns the number of clients connected for userID.
func (h *Hub) UserClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.userID == userID {
			n++
		}
	}
	return n
}

// String implements fmt.Stringer for supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
