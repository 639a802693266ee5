// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package database

import (
	"database/sql"
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/splay/internal/logging"
)

var (
	// ErrNotFound is returned when a record does not exist or is not
	// visible to the requesting user.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a unique value (email, slug) is taken.
	ErrConflict = errors.New("record already exists")
)

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "duplicate key")
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}

// rollbackQuietly rolls back tx, ignoring sql.ErrTxDone after a commit.
func rollbackQuietly(tx *sql.Tx) {
	_ = tx.Rollback()
}
