// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/splay/internal/auth"
	"github.com/tomtom215/splay/internal/validation"
)

// maxRequestBodyBytes bounds JSON bodies of the authenticated API.
const maxRequestBodyBytes = 1 << 20

// logTimeLayout is the space separated layout the web app sends for log
// ranges, in addition to RFC3339.
const logTimeLayout = "2006-01-02 15:04:05.000Z"

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// decodeAndValidate reads a JSON body into dst and validates it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// pageParams reads page and perPage. perPage falls back to defaultPerPage
// and is capped by the configured maximum.
func (h *Handler) pageParams(r *http.Request, defaultPerPage int) (PageRequest, error) {
	req := PageRequest{
		Page:    getIntParam(r, "page", 1),
		PerPage: getIntParam(r, "perPage", defaultPerPage),
	}
	if h.config != nil && h.config.API.MaxPageSize > 0 && req.PerPage > h.config.API.MaxPageSize {
		req.PerPage = h.config.API.MaxPageSize
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return req, verr
	}
	return req, nil
}

// parseTimeParam parses a time range parameter. An empty value is the zero
// time.
func parseTimeParam(r *http.Request, key string) (time.Time, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(logTimeLayout, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTime, key)
}

// requireOwner returns the authenticated user id. Routes using it sit behind
// Authenticate, so a missing id is a wiring error.
func requireOwner(r *http.Request) (string, error) {
	owner := auth.UserIDFromContext(r.Context())
	if owner == "" {
		return "", auth.ErrMissingToken
	}
	return owner, nil
}
