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

// DeleteLogsBefore removes receive logs created before cutoff along with
// every forward log that belongs to them, plus any forward log that is itself
// older than cutoff. Logs and forward settings whose bucket no longer exists
// go too: a receiver or forward worker racing DeleteBucket can write them
// after its transaction commits. It returns the number of log rows removed
// from each table.
func (db *DB) DeleteLogsBefore(ctx context.Context, cutoff time.Time) (receive, forward int64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	cutoff = cutoff.UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	res, err := tx.ExecContext(ctx,
		`DELETE FROM bucket_forward_logs
		WHERE created < ?
		   OR receive_log_id IN (SELECT id FROM bucket_receive_logs WHERE created < ?)
		   OR bucket_id NOT IN (SELECT id FROM buckets)`,
		cutoff, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete forward logs: %w", err)
	}
	if forward, err = res.RowsAffected(); err != nil {
		return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`DELETE FROM bucket_receive_logs
		WHERE created < ?
		   OR bucket_id NOT IN (SELECT id FROM buckets)`,
		cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete receive logs: %w", err)
	}
	if receive, err = res.RowsAffected(); err != nil {
		return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM forward_settings WHERE bucket_id NOT IN (SELECT id FROM buckets)`); err != nil {
		return 0, 0, fmt.Errorf("failed to delete orphaned forward settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit retention sweep: %w", err)
	}
	return receive, forward, nil
}
