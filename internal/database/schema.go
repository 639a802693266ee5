// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables and indexes.
//
// Relations are enforced by the data access layer rather than FOREIGN KEY
// constraints: DuckDB rejects updates to parent rows that are referenced and
// has no ON DELETE CASCADE. DeleteBucket removes children in one transaction.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR PRIMARY KEY,
		email VARCHAR NOT NULL UNIQUE,
		email_visibility BOOLEAN NOT NULL DEFAULT false,
		verified BOOLEAN NOT NULL DEFAULT false,
		name VARCHAR NOT NULL DEFAULT '',
		avatar VARCHAR NOT NULL DEFAULT '',
		password_hash VARCHAR NOT NULL DEFAULT '',
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_identities (
		provider VARCHAR NOT NULL,
		subject VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		created TIMESTAMP NOT NULL,
		PRIMARY KEY (provider, subject)
	)`,

	`CREATE TABLE IF NOT EXISTS buckets (
		id VARCHAR PRIMARY KEY,
		slug VARCHAR NOT NULL UNIQUE,
		name VARCHAR NOT NULL,
		description VARCHAR NOT NULL DEFAULT '',
		user_id VARCHAR NOT NULL,
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS forward_settings (
		id VARCHAR PRIMARY KEY,
		bucket_id VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		url VARCHAR NOT NULL,
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS bucket_receive_logs (
		id VARCHAR PRIMARY KEY,
		bucket_id VARCHAR NOT NULL,
		body VARCHAR NOT NULL,
		headers VARCHAR NOT NULL,
		ip VARCHAR NOT NULL DEFAULT '',
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS bucket_forward_logs (
		id VARCHAR PRIMARY KEY,
		bucket_id VARCHAR NOT NULL,
		receive_log_id VARCHAR NOT NULL,
		destination_url VARCHAR NOT NULL,
		body VARCHAR NOT NULL,
		headers VARCHAR NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		attempt INTEGER NOT NULL DEFAULT 1,
		error VARCHAR NOT NULL DEFAULT '',
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_buckets_user ON buckets(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_identities_user ON user_identities(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_forward_settings_bucket ON forward_settings(bucket_id)`,
	`CREATE INDEX IF NOT EXISTS idx_receive_logs_bucket_created ON bucket_receive_logs(bucket_id, created)`,
	`CREATE INDEX IF NOT EXISTS idx_receive_logs_created ON bucket_receive_logs(created)`,
	`CREATE INDEX IF NOT EXISTS idx_forward_logs_receive ON bucket_forward_logs(receive_log_id)`,
	`CREATE INDEX IF NOT EXISTS idx_forward_logs_bucket_created ON bucket_forward_logs(bucket_id, created)`,
}
