// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/splay/internal/models"
)

const receiveLogColumns = `r.id, r.bucket_id, r.body, r.headers, r.ip, r.created, r.updated`

func scanReceiveLog(row rowScanner) (*models.BucketReceiveLog, error) {
	var (
		l       models.BucketReceiveLog
		body    string
		headers string
	)
	if err := row.Scan(&l.ID, &l.Bucket, &body, &headers, &l.IP, &l.Created, &l.Updated); err != nil {
		return nil, notFound(err)
	}
	l.Body = json.RawMessage(body)
	if err := decodeHeaders(headers, &l.Headers); err != nil {
		return nil, err
	}
	return &l, nil
}

func encodeHeaders(h map[string][]string) (string, error) {
	if h == nil {
		return "{}", nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to encode headers: %w", err)
	}
	return string(b), nil
}

func decodeHeaders(s string, dst *map[string][]string) error {
	if s == "" {
		*dst = map[string][]string{}
		return nil
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return fmt.Errorf("failed to decode headers: %w", err)
	}
	return nil
}

func encodeBody(body json.RawMessage) string {
	if len(body) == 0 {
		return "{}"
	}
	return string(body)
}

// InsertReceiveLog stores a webhook accepted by a bucket.
func (db *DB) InsertReceiveLog(ctx context.Context, l *models.BucketReceiveLog) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	headers, err := encodeHeaders(l.Headers)
	if err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.Created = now()
	l.Updated = l.Created

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO bucket_receive_logs (id, bucket_id, body, headers, ip, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Bucket, encodeBody(l.Body), headers, l.IP, l.Created, l.Updated)
	if err != nil {
		return fmt.Errorf("failed to insert receive log: %w", err)
	}
	return nil
}

// GetReceiveLog returns a receive log on one of owner's buckets with its
// forward logs expanded.
func (db *DB) GetReceiveLog(ctx context.Context, owner, id string) (*models.BucketReceiveLog, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	l, err := scanReceiveLog(db.conn.QueryRowContext(ctx,
		`SELECT `+receiveLogColumns+` FROM bucket_receive_logs r
		JOIN buckets b ON b.id = r.bucket_id
		WHERE r.id = ? AND b.user_id = ?`, id, owner))
	if err != nil {
		return nil, err
	}

	logs := []models.BucketReceiveLog{*l}
	if err := db.attachForwardLogs(ctx, logs); err != nil {
		return nil, err
	}
	return &logs[0], nil
}

// resolveRange fills a missing end with now and a missing start with
// DefaultLogWindow before end.
func resolveRange(start, end time.Time) (time.Time, time.Time) {
	if end.IsZero() {
		end = now()
	}
	if start.IsZero() {
		start = end.Add(-DefaultLogWindow)
	}
	return start.UTC(), end.UTC()
}

// ListReceiveLogs returns a page of receive logs newest first with each
// item's forward logs merged in. The filter is scoped to Owner and, when
// set, Bucket. Start and End default to the last DefaultLogWindow.
func (db *DB) ListReceiveLogs(ctx context.Context, f models.LogFilter) (models.ListResult[models.BucketReceiveLog], error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	page, perPage, offset := normalizePage(f.Page, f.PerPage, DefaultLogsPerPage)
	start, end := resolveRange(f.Start, f.End)

	where := []string{"b.user_id = ?", "r.created >= ?", "r.created <= ?"}
	args := []any{f.Owner, start, end}
	if f.Bucket != "" {
		where = append(where, "r.bucket_id = ?")
		args = append(args, f.Bucket)
	}
	from := ` FROM bucket_receive_logs r JOIN buckets b ON b.id = r.bucket_id WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return models.ListResult[models.BucketReceiveLog]{}, fmt.Errorf("failed to count receive logs: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+receiveLogColumns+from+` ORDER BY r.created DESC, r.id LIMIT ? OFFSET ?`,
		append(args, perPage, offset)...)
	if err != nil {
		return models.ListResult[models.BucketReceiveLog]{}, fmt.Errorf("failed to list receive logs: %w", err)
	}
	defer closeWithLog(rows, "receive log rows")

	logs := make([]models.BucketReceiveLog, 0, perPage)
	for rows.Next() {
		l, err := scanReceiveLog(rows)
		if err != nil {
			return models.ListResult[models.BucketReceiveLog]{}, fmt.Errorf("failed to scan receive log: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return models.ListResult[models.BucketReceiveLog]{}, fmt.Errorf("error iterating receive logs: %w", err)
	}

	if err := db.attachForwardLogs(ctx, logs); err != nil {
		return models.ListResult[models.BucketReceiveLog]{}, err
	}
	return models.NewListResult(logs, page, perPage, total), nil
}

// attachForwardLogs loads the forward logs of every receive log in logs
// with one query and stores them, oldest first, on each item.
func (db *DB) attachForwardLogs(ctx context.Context, logs []models.BucketReceiveLog) error {
	if len(logs) == 0 {
		return nil
	}

	index := make(map[string]int, len(logs))
	args := make([]any, 0, len(logs))
	for i := range logs {
		index[logs[i].ID] = i
		logs[i].ForwardLogs = []models.BucketForwardLog{}
		args = append(args, logs[i].ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")

	forwards, err := db.queryForwardLogs(ctx,
		`SELECT `+forwardLogColumns+` FROM bucket_forward_logs fl
		WHERE fl.receive_log_id IN (`+placeholders+`)
		ORDER BY fl.created, fl.attempt, fl.id`, args...)
	if err != nil {
		return err
	}

	for _, fl := range forwards {
		if i, ok := index[fl.BucketReceiveLog]; ok {
			logs[i].ForwardLogs = append(logs[i].ForwardLogs, fl)
		}
	}
	return nil
}
