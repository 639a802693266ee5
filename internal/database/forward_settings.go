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

const forwardSettingColumns = `f.id, f.bucket_id, f.name, f.url, f.created, f.updated`

// ForwardSettingUpdate holds the mutable forward setting fields.
type ForwardSettingUpdate struct {
	Name *string
	URL  *string
}

func scanForwardSetting(row rowScanner) (*models.ForwardSetting, error) {
	var f models.ForwardSetting
	if err := row.Scan(&f.ID, &f.Bucket, &f.Name, &f.URL, &f.Created, &f.Updated); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (db *DB) queryForwardSettings(ctx context.Context, query string, args ...any) ([]models.ForwardSetting, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list forward settings: %w", err)
	}
	defer closeWithLog(rows, "forward setting rows")

	settings := make([]models.ForwardSetting, 0)
	for rows.Next() {
		f, err := scanForwardSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forward setting: %w", err)
		}
		settings = append(settings, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forward settings: %w", err)
	}
	return settings, nil
}

// CreateForwardSetting adds a destination to one of owner's buckets.
func (db *DB) CreateForwardSetting(ctx context.Context, owner string, setting *models.ForwardSetting) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.GetBucket(ctx, owner, setting.Bucket); err != nil {
		return err
	}

	if setting.ID == "" {
		setting.ID = uuid.NewString()
	}
	setting.Created = now()
	setting.Updated = setting.Created

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO forward_settings (id, bucket_id, name, url, created, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		setting.ID, setting.Bucket, setting.Name, setting.URL, setting.Created, setting.Updated)
	if err != nil {
		return fmt.Errorf("failed to create forward setting: %w", err)
	}
	return nil
}

// GetForwardSetting returns a forward setting on one of owner's buckets.
func (db *DB) GetForwardSetting(ctx context.Context, owner, id string) (*models.ForwardSetting, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return scanForwardSetting(db.conn.QueryRowContext(ctx,
		`SELECT `+forwardSettingColumns+` FROM forward_settings f
		JOIN buckets b ON b.id = f.bucket_id
		WHERE f.id = ? AND b.user_id = ?`, id, owner))
}

// ListForwardSettings returns the forward settings of one of owner's buckets,
// oldest first. An unknown bucket yields ErrNotFound.
func (db *DB) ListForwardSettings(ctx context.Context, owner, bucketID string) ([]models.ForwardSetting, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.GetBucket(ctx, owner, bucketID); err != nil {
		return nil, err
	}
	return db.queryForwardSettings(ctx,
		`SELECT `+forwardSettingColumns+` FROM forward_settings f WHERE f.bucket_id = ? ORDER BY f.created, f.id`, bucketID)
}

// ListForwardSettingsForBucket returns every destination of a bucket without
// an ownership check. Used by the forwarder.
func (db *DB) ListForwardSettingsForBucket(ctx context.Context, bucketID string) ([]models.ForwardSetting, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.queryForwardSettings(ctx,
		`SELECT `+forwardSettingColumns+` FROM forward_settings f WHERE f.bucket_id = ? ORDER BY f.created, f.id`, bucketID)
}

// UpdateForwardSetting applies upd to a forward setting on one of owner's
// buckets.
func (db *DB) UpdateForwardSetting(ctx context.Context, owner, id string, upd ForwardSettingUpdate) (*models.ForwardSetting, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	setting, err := db.GetForwardSetting(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		setting.Name = *upd.Name
	}
	if upd.URL != nil {
		setting.URL = *upd.URL
	}
	setting.Updated = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE forward_settings SET name = ?, url = ?, updated = ? WHERE id = ?`,
		setting.Name, setting.URL, setting.Updated, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update forward setting: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return setting, nil
}

// DeleteForwardSetting removes a forward setting on one of owner's buckets.
// Forward logs already written for it are kept.
func (db *DB) DeleteForwardSetting(ctx context.Context, owner, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.GetForwardSetting(ctx, owner, id); err != nil {
		return err
	}
	result, err := db.conn.ExecContext(ctx, `DELETE FROM forward_settings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete forward setting: %w", err)
	}
	return requireAffected(result)
}
