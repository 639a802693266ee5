// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package services provides suture.Service wrappers for Splay components that
do not implement Serve themselves.

Most long running parts of Splay (the forwarder, the websocket hub and
bridge, bus consumers, the retention sweeper, the token store and the
lockout manager) already have a Serve(ctx) error method and are added to
the tree directly. The wrappers here cover the rest:

HTTPServerService:
  - Wraps *http.Server, translating ListenAndServe to Serve
  - Shuts the server down gracefully when the tree stops
  - Returns listener errors so suture restarts the server

CloserService:
  - Holds an io.Closer such as the event bus for the life of the tree
  - Closes it exactly once on shutdown

Example:

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddMessagingService(services.NewCloserService("event-bus", bus))
*/
package services
