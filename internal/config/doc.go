// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package config provides centralized configuration management for Splay.

Configuration is layered with Koanf v2: struct defaults, then an optional YAML
file (CONFIG_PATH or config.yaml), then environment variables. Environment
names are mapped explicitly to config paths so unrelated variables never leak
into the configuration.

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
  - ENVIRONMENT: development (default) or production
  - APP_NAME, APP_URL: used in emails and OAuth redirects
  - STATIC_DIR: built SPA directory (default: ./web/dist)

Storage:
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS
  - TOKEN_STORE_PATH: BadgerDB directory (empty = in memory)

Security:
  - JWT_SECRET (required, 32+ characters), SESSION_TIMEOUT
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - RECEIVE_RATE_LIMIT_REQUESTS, RECEIVE_RATE_LIMIT_WINDOW (default: 150 per 3s)
  - CORS_ORIGINS, TRUSTED_PROXIES (comma separated)
  - OAUTH_<PROVIDER>_CLIENT_ID, OAUTH_<PROVIDER>_CLIENT_SECRET,
    OAUTH_<PROVIDER>_ISSUER, OAUTH_<PROVIDER>_REDIRECT_URL

Forwarding:
  - FORWARD_WORKERS, FORWARD_QUEUE_SIZE, FORWARD_REQUEST_TIMEOUT
  - FORWARD_MAX_RETRIES, FORWARD_MIN_BACKOFF, FORWARD_MAX_BACKOFF

Retention and events:
  - LOG_RETENTION_DAYS (default: 7), LOG_RETENTION_INTERVAL
  - NATS_URL: publish events over NATS JetStream instead of in process

Mail:
  - SMTP_ENABLED, SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD,
    SMTP_FROM_ADDRESS, SMTP_FROM_NAME

Logging:
  - LOG_LEVEL, LOG_FORMAT (json|console), LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	db, err := database.New(&cfg.Database)
*/
package config
