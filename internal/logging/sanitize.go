// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package logging

import "strings"

const maxLogValueLength = 200

// SanitizeValue strips control characters from user-supplied values and
// truncates them so they cannot forge or flood log lines.
func SanitizeValue(value string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, value)
	return truncateString(cleaned, maxLogValueLength)
}

// SanitizeEmail keeps the domain and the first character of the local part.
func SanitizeEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return SanitizeValue(email[:1] + "***" + email[at:])
}

// SanitizeToken shows only the first 8 characters of a secret.
func SanitizeToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
