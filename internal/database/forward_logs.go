// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/splay/internal/models"
)

const forwardLogColumns = `fl.id, fl.bucket_id, fl.receive_log_id, fl.destination_url, fl.body, fl.headers,
	fl.status_code, fl.attempt, fl.error, fl.created, fl.updated`

func scanForwardLog(row rowScanner) (*models.BucketForwardLog, error) {
	var (
		l       models.BucketForwardLog
		body    string
		headers string
	)
	err := row.Scan(&l.ID, &l.Bucket, &l.BucketReceiveLog, &l.DestinationURL, &body, &headers,
		&l.StatusCode, &l.Attempt, &l.Error, &l.Created, &l.Updated)
	if err != nil {
		return nil, notFound(err)
	}
	l.Body = json.RawMessage(body)
	if err := decodeHeaders(headers, &l.Headers); err != nil {
		return nil, err
	}
	return &l, nil
}

func (db *DB) queryForwardLogs(ctx context.Context, query string, args ...any) ([]models.BucketForwardLog, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list forward logs: %w", err)
	}
	defer closeWithLog(rows, "forward log rows")

	logs := make([]models.BucketForwardLog, 0)
	for rows.Next() {
		l, err := scanForwardLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forward log: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forward logs: %w", err)
	}
	return logs, nil
}

// InsertForwardLog stores the outcome of one forwarding attempt.
func (db *DB) InsertForwardLog(ctx context.Context, l *models.BucketForwardLog) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	headers, err := encodeHeaders(l.Headers)
	if err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Attempt < 1 {
		l.Attempt = 1
	}
	l.Created = now()
	l.Updated = l.Created

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO bucket_forward_logs (id, bucket_id, receive_log_id, destination_url, body, headers,
			status_code, attempt, error, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Bucket, l.BucketReceiveLog, l.DestinationURL, encodeBody(l.Body), headers,
		l.StatusCode, l.Attempt, l.Error, l.Created, l.Updated)
	if err != nil {
		return fmt.Errorf("failed to insert forward log: %w", err)
	}
	return nil
}

// GetForwardLog returns a forward log on one of owner's buckets.
func (db *DB) GetForwardLog(ctx context.Context, owner, id string) (*models.BucketForwardLog, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return scanForwardLog(db.conn.QueryRowContext(ctx,
		`SELECT `+forwardLogColumns+` FROM bucket_forward_logs fl
		JOIN buckets b ON b.id = fl.bucket_id
		WHERE fl.id = ? AND b.user_id = ?`, id, owner))
}

// ListForwardLogsByBucket returns a page of forward logs for f.Bucket,
// newest first. Start and End narrow the range when set.
func (db *DB) ListForwardLogsByBucket(ctx context.Context, f models.LogFilter) (models.ListResult[models.BucketForwardLog], error) {
	if f.Bucket == "" {
		return models.ListResult[models.BucketForwardLog]{}, fmt.Errorf("bucket is required")
	}
	return db.listForwardLogs(ctx, f, "fl.bucket_id = ?", f.Bucket, "fl.created DESC, fl.id")
}

// ListForwardLogsByReceiveLog returns a page of the attempts made for
// f.ReceiveLog in the order they happened.
func (db *DB) ListForwardLogsByReceiveLog(ctx context.Context, f models.LogFilter) (models.ListResult[models.BucketForwardLog], error) {
	if f.ReceiveLog == "" {
		return models.ListResult[models.BucketForwardLog]{}, fmt.Errorf("receive log is required")
	}
	return db.listForwardLogs(ctx, f, "fl.receive_log_id = ?", f.ReceiveLog, "fl.created, fl.attempt, fl.id")
}

func (db *DB) listForwardLogs(ctx context.Context, f models.LogFilter, cond string, key any, order string) (models.ListResult[models.BucketForwardLog], error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	page, perPage, offset := normalizePage(f.Page, f.PerPage, DefaultLogsPerPage)

	where := []string{"b.user_id = ?", cond}
	args := []any{f.Owner, key}
	if !f.Start.IsZero() {
		where = append(where, "fl.created >= ?")
		args = append(args, f.Start.UTC())
	}
	if !f.End.IsZero() {
		where = append(where, "fl.created <= ?")
		args = append(args, f.End.UTC())
	}
	from := ` FROM bucket_forward_logs fl JOIN buckets b ON b.id = fl.bucket_id WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return models.ListResult[models.BucketForwardLog]{}, fmt.Errorf("failed to count forward logs: %w", err)
	}

	logs, err := db.queryForwardLogs(ctx,
		`SELECT `+forwardLogColumns+from+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, perPage, offset)...)
	if err != nil {
		return models.ListResult[models.BucketForwardLog]{}, err
	}
	return models.NewListResult(logs, page, perPage, total), nil
}
