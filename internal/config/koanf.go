// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/splay/config.yaml",
	"./config/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8090,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
			AppName:     "Splay App",
			AppURL:      "",
			StaticDir:   "./web/dist",
		},
		Database: DatabaseConfig{
			Path:      "/data/splay.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		API: APIConfig{
			DefaultPageSize: 25,
			MaxPageSize:     500,
		},
		Security: SecurityConfig{
			JWTSecret:              "",
			SessionTimeout:         24 * time.Hour,
			CookieSecure:           false,
			RateLimitReqs:          100,
			RateLimitWindow:        time.Minute,
			RateLimitDisabled:      false,
			ReceiveRateLimitReqs:   150,
			ReceiveRateLimitWindow: 3 * time.Second,
			CORSOrigins:            []string{"*"},
			TrustedProxies:         []string{},
			LockoutMaxAttempts:     5,
			LockoutDuration:        15 * time.Minute,
			TokenStorePath:         "",
		},
		OAuth: OAuthConfig{
			Providers: map[string]OAuthProviderConfig{},
		},
		Forward: ForwardConfig{
			Workers:             8,
			QueueSize:           1024,
			RequestTimeout:      10 * time.Second,
			MaxRetries:          4,
			MinBackoff:          time.Second,
			MaxBackoff:          20 * time.Second,
			RetryTick:           500 * time.Millisecond,
			HostRateLimit:       20,
			HostRateBurst:       40,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      2 * time.Minute,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
		},
		Retention: RetentionConfig{
			Days:     7,
			Interval: time.Hour,
		},
		Events: EventsConfig{
			NATSURL:          "",
			QueueGroup:       "splay",
			SubscribersCount: 1,
			AckWaitTimeout:   30 * time.Second,
			BufferSize:       256,
		},
		SMTP: SMTPConfig{
			Enabled:  false,
			Port:     587,
			FromName: "Splay",
			Timeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with the following priority (highest wins):
//  1. Environment variables
//  2. Config file (CONFIG_PATH or the first of DefaultConfigPaths)
//  3. Built-in defaults
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyDerivedDefaults fills values that depend on other settings.
func (c *Config) applyDerivedDefaults() {
	if c.Server.AppURL == "" && c.IsDevelopment() {
		c.Server.AppURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Server.AppURL = strings.TrimRight(c.Server.AppURL, "/")

	if c.OAuth.Providers == nil {
		c.OAuth.Providers = map[string]OAuthProviderConfig{}
	}
	for name, p := range c.OAuth.Providers {
		if p.RedirectURL == "" {
			p.RedirectURL = c.Server.AppURL + "/api/v1/auth/oauth/" + name + "/callback"
		}
		if p.Issuer == "" && name == "google" {
			p.Issuer = "https://accounts.google.com"
		}
		c.OAuth.Providers[name] = p
	}
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}

		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// oauthEnvFields are the per-provider fields accepted as OAUTH_<PROVIDER>_<FIELD>.
var oauthEnvFields = []string{"client_id", "client_secret", "issuer", "redirect_url"}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - JWT_SECRET -> security.jwt_secret
//   - OAUTH_GITHUB_CLIENT_ID -> oauth.providers.github.client_id
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",
		"app_name":     "server.app_name",
		"app_url":      "server.app_url",
		"static_dir":   "server.static_dir",

		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Security
		"jwt_secret":                  "security.jwt_secret",
		"session_timeout":             "security.session_timeout",
		"cookie_secure":               "security.cookie_secure",
		"rate_limit_requests":         "security.rate_limit_reqs",
		"rate_limit_window":           "security.rate_limit_window",
		"disable_rate_limit":          "security.rate_limit_disabled",
		"receive_rate_limit_requests": "security.receive_rate_limit_reqs",
		"receive_rate_limit_window":   "security.receive_rate_limit_window",
		"cors_origins":                "security.cors_origins",
		"trusted_proxies":             "security.trusted_proxies",
		"lockout_max_attempts":        "security.lockout_max_attempts",
		"lockout_duration":            "security.lockout_duration",
		"token_store_path":            "security.token_store_path",

		// Forwarding
		"forward_workers":         "forward.workers",
		"forward_queue_size":      "forward.queue_size",
		"forward_request_timeout": "forward.request_timeout",
		"forward_max_retries":     "forward.max_retries",
		"forward_min_backoff":     "forward.min_backoff",
		"forward_max_backoff":     "forward.max_backoff",
		"forward_host_rate_limit": "forward.host_rate_limit",
		"forward_host_rate_burst": "forward.host_rate_burst",

		// Retention
		"log_retention_days":     "retention.days",
		"log_retention_interval": "retention.interval",

		// Events
		"nats_url":         "events.nats_url",
		"nats_queue_group": "events.queue_group",
		"nats_subscribers": "events.subscribers_count",

		// SMTP
		"smtp_enabled":      "smtp.enabled",
		"smtp_host":         "smtp.host",
		"smtp_port":         "smtp.port",
		"smtp_username":     "smtp.username",
		"smtp_password":     "smtp.password",
		"smtp_from_address": "smtp.from_address",
		"smtp_from_name":    "smtp.from_name",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	if rest, ok := strings.CutPrefix(key, "oauth_"); ok {
		for _, field := range oauthEnvFields {
			if provider, ok := strings.CutSuffix(rest, "_"+field); ok && provider != "" {
				return "oauth.providers." + provider + "." + field
			}
		}
	}

	// Unmapped keys are skipped so random environment variables do not
	// pollute the config.
	return ""
}
