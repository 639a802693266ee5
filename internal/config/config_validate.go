// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the configuration, returning the first problem found.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateOAuth(); err != nil {
		return err
	}
	if err := c.validateForward(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateSMTP(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.AppURL == "" {
		return fmt.Errorf("APP_URL is required when ENVIRONMENT=%s", c.Server.Environment)
	}
	if err := checkURL(c.Server.AppURL, httpSchemes, true); err != nil {
		return fmt.Errorf("APP_URL is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be >= 1, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE (%d) must be >= API_DEFAULT_PAGE_SIZE (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
	minJWTSecretLength   = 32
)

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if !c.Security.RateLimitDisabled {
		if err := validateRateLimit(c.Security.RateLimitReqs, c.Security.RateLimitWindow, "RATE_LIMIT"); err != nil {
			return err
		}
		if err := validateRateLimit(c.Security.ReceiveRateLimitReqs, c.Security.ReceiveRateLimitWindow, "RECEIVE_RATE_LIMIT"); err != nil {
			return err
		}
	}
	if c.Security.LockoutMaxAttempts < 1 {
		return fmt.Errorf("LOCKOUT_MAX_ATTEMPTS must be >= 1, got %d", c.Security.LockoutMaxAttempts)
	}
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production. " +
			"Set specific origins: CORS_ORIGINS=https://yourdomain.com")
	}
	return nil
}

func validateRateLimit(reqs int, window time.Duration, name string) error {
	if reqs < minRateLimitRequests || reqs > maxRateLimitRequests {
		return fmt.Errorf("%s_REQUESTS must be between %d and %d, got %d",
			name, minRateLimitRequests, maxRateLimitRequests, reqs)
	}
	if window < minRateLimitWindow || window > maxRateLimitWindow {
		return fmt.Errorf("%s_WINDOW must be between %s and %s, got %s",
			name, minRateLimitWindow, maxRateLimitWindow, window)
	}
	return nil
}

func (c *Config) validateOAuth() error {
	for name, p := range c.OAuth.Providers {
		if p.ClientID == "" {
			return fmt.Errorf("OAUTH_%s_CLIENT_ID is required", strings.ToUpper(name))
		}
		if name != "github" && p.Issuer == "" {
			return fmt.Errorf("OAUTH_%s_ISSUER is required for OIDC providers", strings.ToUpper(name))
		}
		if p.Issuer != "" {
			if err := checkURL(p.Issuer, httpSchemes, false); err != nil {
				return fmt.Errorf("OAUTH_%s_ISSUER is invalid: %w", strings.ToUpper(name), err)
			}
		}
	}
	return nil
}

func (c *Config) validateForward() error {
	f := c.Forward
	if f.Workers < 1 {
		return fmt.Errorf("FORWARD_WORKERS must be >= 1, got %d", f.Workers)
	}
	if f.QueueSize < 1 {
		return fmt.Errorf("FORWARD_QUEUE_SIZE must be >= 1, got %d", f.QueueSize)
	}
	if f.RequestTimeout <= 0 {
		return fmt.Errorf("FORWARD_REQUEST_TIMEOUT must be positive")
	}
	if f.MaxRetries < 0 {
		return fmt.Errorf("FORWARD_MAX_RETRIES must be >= 0, got %d", f.MaxRetries)
	}
	if f.MinBackoff <= 0 || f.MaxBackoff < f.MinBackoff {
		return fmt.Errorf("FORWARD_MIN_BACKOFF (%s) must be positive and <= FORWARD_MAX_BACKOFF (%s)",
			f.MinBackoff, f.MaxBackoff)
	}
	if f.BreakerFailureRatio <= 0 || f.BreakerFailureRatio > 1 {
		return fmt.Errorf("forward.breaker_failure_ratio must be in (0, 1], got %v", f.BreakerFailureRatio)
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.Days < 1 {
		return fmt.Errorf("LOG_RETENTION_DAYS must be >= 1, got %d", c.Retention.Days)
	}
	if c.Retention.Interval < time.Minute {
		return fmt.Errorf("LOG_RETENTION_INTERVAL must be at least 1m, got %s", c.Retention.Interval)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.NATSURL == "" {
		return nil
	}
	if err := checkURL(c.Events.NATSURL, natsSchemes, false); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.Events.SubscribersCount < 1 {
		return fmt.Errorf("NATS_SUBSCRIBERS must be >= 1, got %d", c.Events.SubscribersCount)
	}
	return nil
}

func (c *Config) validateSMTP() error {
	if !c.SMTP.Enabled {
		return nil
	}
	if c.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when SMTP_ENABLED=true")
	}
	if c.SMTP.FromAddress == "" {
		return fmt.Errorf("SMTP_FROM_ADDRESS is required when SMTP_ENABLED=true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if the CORS configuration should be
// flagged at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}
