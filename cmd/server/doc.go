// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package main is the entry point for the Splay server.

Splay receives webhooks into buckets, stores every delivery and relays it to
the bucket's forward destinations. Users manage buckets and watch deliveries
arrive through the web app.

# Application Architecture

	RootSupervisor ("splay")
	├── DataSupervisor ("data-layer")
	│   ├── Token store (BadgerDB)
	│   ├── Login lockout cleanup
	│   └── Retention sweeper (if LOG_RETENTION_DAYS > 0)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub
	│   ├── Event bridge (bus to hub)
	│   ├── Forwarder and its bus intake
	│   └── Event bus closer
	└── APISupervisor ("api-layer")
	    └── HTTP server (receiver, /api/v1, web app)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment
 2. Logging: zerolog with JSON or console output
 3. Database: DuckDB with schema migrations
 4. Token store: BadgerDB at TOKEN_STORE_PATH, or in memory
 5. Event bus: Watermill on NATS when NATS_URL is set, else in process
 6. Supervisor tree: Suture v4
 7. Forwarder, WebSocket hub and bridge
 8. Auth service: password login, OAuth providers, password reset mail
 9. HTTP server: Chi router with middleware stack

# Request Flow

	POST /buckets/{slug}
	  -> receive log stored in DuckDB
	  -> published on splay.receive_logs
	       -> forward-intake consumer -> forwarder workers -> destinations
	       -> bridge -> websocket clients of the bucket owner
	  <- {"success":"true"}

# Configuration

Settings come from built-in defaults, an optional config file (CONFIG_PATH
or ./config.yaml) and environment variables, highest priority last. The
common ones:

	HTTP_HOST, HTTP_PORT       listen address (default 0.0.0.0:8090)
	APP_URL                    public URL used in links and OAuth redirects
	DUCKDB_PATH                database file
	JWT_SECRET                 session signing key, 32+ characters
	NATS_URL                   external NATS server for the event bus
	STATIC_DIR                 built web app to serve at /
	OAUTH_<NAME>_CLIENT_ID     enables an OAuth provider (github, google, OIDC)
	SMTP_ENABLED, SMTP_HOST    password reset mail

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up to
10 seconds, the forwarder stops its workers and services that do not stop
in time are logged by name.
*/
package main
