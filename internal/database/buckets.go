// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/splay/internal/models"
)

const bucketColumns = `id, slug, name, description, user_id, created, updated`

// BucketUpdate holds the mutable bucket fields. Nil fields are left alone.
type BucketUpdate struct {
	Name        *string
	Description *string
}

func scanBucket(row rowScanner) (*models.Bucket, error) {
	var b models.Bucket
	if err := row.Scan(&b.ID, &b.Slug, &b.Name, &b.Description, &b.User, &b.Created, &b.Updated); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// CreateBucket inserts a bucket owned by bucket.User. Slugs are globally
// unique.
func (db *DB) CreateBucket(ctx context.Context, bucket *models.Bucket) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if bucket.ID == "" {
		bucket.ID = uuid.NewString()
	}
	bucket.Created = now()
	bucket.Updated = bucket.Created

	_, err := db.conn.ExecContext(ctx, `INSERT INTO buckets (`+bucketColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bucket.ID, bucket.Slug, bucket.Name, bucket.Description, bucket.User, bucket.Created, bucket.Updated)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// GetBucket returns one of owner's buckets by ID.
func (db *DB) GetBucket(ctx context.Context, owner, id string) (*models.Bucket, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return scanBucket(db.conn.QueryRowContext(ctx,
		`SELECT `+bucketColumns+` FROM buckets WHERE id = ? AND user_id = ?`, id, owner))
}

// GetBucketBySlug returns one of owner's buckets by slug.
func (db *DB) GetBucketBySlug(ctx context.Context, owner, slug string) (*models.Bucket, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return scanBucket(db.conn.QueryRowContext(ctx,
		`SELECT `+bucketColumns+` FROM buckets WHERE slug = ? AND user_id = ?`, slug, owner))
}

// GetBucketForReceive looks a bucket up by slug for the public webhook
// receiver, regardless of owner.
func (db *DB) GetBucketForReceive(ctx context.Context, slug string) (*models.Bucket, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return scanBucket(db.conn.QueryRowContext(ctx,
		`SELECT `+bucketColumns+` FROM buckets WHERE slug = ?`, slug))
}

// ListBuckets returns a page of owner's buckets, newest first.
func (db *DB) ListBuckets(ctx context.Context, owner string, page, perPage int) (models.ListResult[models.Bucket], error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	page, perPage, offset := normalizePage(page, perPage, DefaultBucketsPerPage)

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM buckets WHERE user_id = ?`, owner).Scan(&total); err != nil {
		return models.ListResult[models.Bucket]{}, fmt.Errorf("failed to count buckets: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+bucketColumns+` FROM buckets WHERE user_id = ? ORDER BY created DESC, id LIMIT ? OFFSET ?`,
		owner, perPage, offset)
	if err != nil {
		return models.ListResult[models.Bucket]{}, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer closeWithLog(rows, "bucket rows")

	buckets := make([]models.Bucket, 0, perPage)
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return models.ListResult[models.Bucket]{}, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, *b)
	}
	if err := rows.Err(); err != nil {
		return models.ListResult[models.Bucket]{}, fmt.Errorf("error iterating buckets: %w", err)
	}

	return models.NewListResult(buckets, page, perPage, total), nil
}

// UpdateBucket applies upd to one of owner's buckets and returns the result.
// The slug cannot be changed.
func (db *DB) UpdateBucket(ctx context.Context, owner, id string, upd BucketUpdate) (*models.Bucket, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	bucket, err := db.GetBucket(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		bucket.Name = *upd.Name
	}
	if upd.Description != nil {
		bucket.Description = *upd.Description
	}
	bucket.Updated = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE buckets SET name = ?, description = ?, updated = ? WHERE id = ? AND user_id = ?`,
		bucket.Name, bucket.Description, bucket.Updated, id, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to update bucket: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return bucket, nil
}

// DeleteBucket removes one of owner's buckets together with its forward
// settings, receive logs and forward logs.
func (db *DB) DeleteBucket(ctx context.Context, owner, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) > 0 FROM buckets WHERE id = ? AND user_id = ?`, id, owner).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	for _, q := range []string{
		`DELETE FROM bucket_forward_logs WHERE bucket_id = ?`,
		`DELETE FROM bucket_receive_logs WHERE bucket_id = ?`,
		`DELETE FROM forward_settings WHERE bucket_id = ?`,
		`DELETE FROM buckets WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete bucket: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bucket delete: %w", err)
	}
	return nil
}
