// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting via environment variables
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	API       APIConfig       `koanf:"api"`
	Security  SecurityConfig  `koanf:"security"`
	OAuth     OAuthConfig     `koanf:"oauth"`
	Forward   ForwardConfig   `koanf:"forward"`
	Retention RetentionConfig `koanf:"retention"`
	Events    EventsConfig    `koanf:"events"`
	SMTP      SMTPConfig      `koanf:"smtp"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
//   - ENVIRONMENT: development or production
//   - APP_NAME, APP_URL
//   - STATIC_DIR: directory containing the built SPA
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
	AppName     string        `koanf:"app_name"`
	AppURL      string        `koanf:"app_url"`
	StaticDir   string        `koanf:"static_dir"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB settings. Path may be ":memory:".
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// APIConfig holds pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication, rate limiting and CORS settings.
//
// The receiver rate limit applies to POST /buckets/{slug} and is tracked per
// client IP independently of the API limit.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	CookieSecure   bool          `koanf:"cookie_secure"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	ReceiveRateLimitReqs   int           `koanf:"receive_rate_limit_reqs"`
	ReceiveRateLimitWindow time.Duration `koanf:"receive_rate_limit_window"`

	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`

	LockoutMaxAttempts int           `koanf:"lockout_max_attempts"`
	LockoutDuration    time.Duration `koanf:"lockout_duration"`

	// TokenStorePath is the BadgerDB directory for revoked tokens, reset
	// tokens and OAuth state. Empty runs the store in memory.
	TokenStorePath string `koanf:"token_store_path"`
}

// OAuthConfig holds external login providers keyed by name ("github",
// "google", or any OIDC issuer).
type OAuthConfig struct {
	Providers map[string]OAuthProviderConfig `koanf:"providers"`
}

// OAuthProviderConfig configures one login provider. Issuer is required for
// OIDC providers; github uses fixed OAuth2 endpoints.
type OAuthProviderConfig struct {
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	Issuer       string   `koanf:"issuer"`
	RedirectURL  string   `koanf:"redirect_url"`
	Scopes       []string `koanf:"scopes"`
}

// ForwardConfig tunes the relay engine.
type ForwardConfig struct {
	Workers        int           `koanf:"workers"`
	QueueSize      int           `koanf:"queue_size"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	MinBackoff     time.Duration `koanf:"min_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
	RetryTick      time.Duration `koanf:"retry_tick"`

	// Per destination host pacing.
	HostRateLimit float64 `koanf:"host_rate_limit"`
	HostRateBurst int     `koanf:"host_rate_burst"`

	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
}

// RetentionConfig controls the log sweeper.
type RetentionConfig struct {
	Days     int           `koanf:"days"`
	Interval time.Duration `koanf:"interval"`
}

// EventsConfig selects the event bus transport. An empty NATSURL keeps
// events in process.
type EventsConfig struct {
	NATSURL          string        `koanf:"nats_url"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	BufferSize       int64         `koanf:"buffer_size"`
}

// SMTPConfig holds outgoing mail settings used for password reset emails.
type SMTPConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	FromAddress string        `koanf:"from_address"`
	FromName    string        `koanf:"from_name"`
	Timeout     time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration using Koanf. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
