// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package supervisor provides process supervision for Splay using suture v4.

Every long running part of the server is a suture.Service in one tree:

	RootSupervisor ("splay")
	├── DataSupervisor ("data-layer")
	│   ├── TokenStore        session revocations, reset tokens, OAuth state
	│   ├── LockoutManager    expires login lockouts
	│   └── Sweeper           deletes logs past the retention period
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Hub               websocket clients
	│   ├── Bridge            log events from the bus to the hub
	│   ├── Consumer          "forwarder" intake of receive logs from the bus
	│   ├── Forwarder         worker pool and retry queue
	│   └── CloserService     closes the event bus on shutdown
	└── APISupervisor ("api-layer")
	    └── HTTPServerService receiver, API and web app

A failing service is restarted with backoff inside its own layer. The
receiver keeps storing webhooks while the forwarder recovers.

# Logging

Supervisor events (service start, failure, restart, backoff) are logged
through sutureslog. cmd/server passes logging.NewSlogLogger so they end up
in the same zerolog output as the rest of the server.

# Shutdown

Canceling the context given to Serve stops every layer. Services get
TreeConfig.ShutdownTimeout to return; UnstoppedServiceReport names the ones
that did not.
*/
package supervisor
