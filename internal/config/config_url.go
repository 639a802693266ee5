// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	httpSchemes = []string{"http", "https"}
	natsSchemes = []string{"nats", "tls", "ws", "wss"}
)

// checkURL parses raw and requires one of schemes and a host. With baseOnly
// set, anything past the origin (a path other than "/", a query) is
// rejected: APP_URL is joined with route paths when links are built.
func checkURL(raw string, schemes []string, baseOnly bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %q: %w", raw, err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return fmt.Errorf("scheme must be one of %s, got %q", strings.Join(schemes, ", "), u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	if !baseOnly {
		return nil
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("must be a base URL without path, got path %q", u.Path)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("must be a base URL without query or fragment")
	}
	return nil
}
