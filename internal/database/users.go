// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/splay/internal/models"
)

const userColumns = `id, email, email_visibility, verified, name, avatar, password_hash, created, updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.EmailVisibility, &u.Verified, &u.Name, &u.Avatar,
		&u.PasswordHash, &u.Created, &u.Updated)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// normalizeEmail lowercases and trims an address for storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a user. The email must be unique.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return insertUser(ctx, db.conn, user)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertUser(ctx context.Context, ex execer, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = normalizeEmail(user.Email)
	user.Created = now()
	user.Updated = user.Created

	_, err := ex.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.EmailVisibility, user.Verified, user.Name, user.Avatar,
		user.PasswordHash, user.Created, user.Updated)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID returns a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return scanUser(db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByEmail returns a user, including the password hash, by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return scanUser(db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email)))
}

// UpdatePassword replaces a user's password hash.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated = ? WHERE id = ?`, passwordHash, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(result)
}

// FindOrCreateOAuthUser resolves an external identity to a user.
//
// A known provider subject returns its linked user. Otherwise a verified
// email that matches an existing user links the identity to that user, and
// anything else creates a new passwordless user. created reports the last
// case.
func (db *DB) FindOrCreateOAuthUser(ctx context.Context, identity models.OAuthIdentity) (user *models.User, created bool, err error) {
	if identity.Provider == "" || identity.Subject == "" {
		return nil, false, fmt.Errorf("oauth identity requires provider and subject")
	}
	if identity.Email == "" {
		return nil, false, fmt.Errorf("oauth provider %s returned no email", identity.Provider)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	var userID string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM user_identities WHERE provider = ? AND subject = ?`,
		identity.Provider, identity.Subject).Scan(&userID)
	switch {
	case err == nil:
		user, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID))
		if err != nil {
			return nil, false, err
		}
		return user, false, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, fmt.Errorf("failed to look up identity: %w", err)
	}

	user, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(identity.Email)))
	switch {
	case err == nil:
		if !identity.Verified {
			// An unverified provider email must not take over a local account.
			return nil, false, ErrConflict
		}
	case errors.Is(err, ErrNotFound):
		user = &models.User{
			Email:    identity.Email,
			Name:     identity.Name,
			Avatar:   identity.AvatarURL,
			Verified: identity.Verified,
		}
		if err := insertUser(ctx, tx, user); err != nil {
			return nil, false, err
		}
		created = true
	default:
		return nil, false, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_identities (provider, subject, user_id, created) VALUES (?, ?, ?, ?)`,
		identity.Provider, identity.Subject, user.ID, now())
	if err != nil {
		return nil, false, fmt.Errorf("failed to link identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit oauth user: %w", err)
	}
	return user, created, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
