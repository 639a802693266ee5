// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package websocket pushes log events to the SPA in real time.

Key Components:

  - Hub: tracks connected clients per user and delivers each message only to
    the clients of the user it is addressed to
  - Client: one gorilla/websocket connection with a read pump and a write pump
  - Bridge: consumes both log topics from the event bus and hands each event
    to the hub

Every client is bound to the authenticated user that opened it. Log events
carry the bucket owner, and BroadcastLogEvent routes them to that owner only,
so one user never sees another user's webhooks.

Message Types:

  - connected: sent once after registration
  - receive_log.created: a webhook was stored
  - forward_log.created: a forward attempt finished
  - pong: reply to a client {"type":"ping"}

Both the Hub and the Bridge implement suture.Service. A hub that stops closes
all of its clients; browsers reconnect.

The write pump sends a ping every 54 seconds and the read pump drops the
connection when no pong arrives within 60 seconds.
*/
package websocket
