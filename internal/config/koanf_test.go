// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadWithKoanf_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Server.AppURL != "http://localhost:8090" {
		t.Errorf("Server.AppURL = %q, want derived localhost URL", cfg.Server.AppURL)
	}
	if cfg.Security.ReceiveRateLimitReqs != 150 || cfg.Security.ReceiveRateLimitWindow != 3*time.Second {
		t.Errorf("receive rate limit = %d/%s, want 150/3s",
			cfg.Security.ReceiveRateLimitReqs, cfg.Security.ReceiveRateLimitWindow)
	}
	if cfg.Retention.Days != 7 {
		t.Errorf("Retention.Days = %d, want 7", cfg.Retention.Days)
	}
	if cfg.Forward.MaxRetries != 4 {
		t.Errorf("Forward.MaxRetries = %d, want 4", cfg.Forward.MaxRetries)
	}
	if cfg.Forward.RequestTimeout != 10*time.Second {
		t.Errorf("Forward.RequestTimeout = %s, want 10s", cfg.Forward.RequestTimeout)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("LOG_RETENTION_DAYS", "30")
	t.Setenv("OAUTH_GITHUB_CLIENT_ID", "gh-client")
	t.Setenv("OAUTH_GITHUB_CLIENT_SECRET", "gh-secret")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins = %v, want two trimmed origins", cfg.Security.CORSOrigins)
	}
	if cfg.Retention.Days != 30 {
		t.Errorf("Retention.Days = %d, want 30", cfg.Retention.Days)
	}

	gh, ok := cfg.OAuth.Providers["github"]
	if !ok {
		t.Fatal("expected github provider from environment")
	}
	if gh.ClientID != "gh-client" || gh.ClientSecret != "gh-secret" {
		t.Errorf("github provider = %+v", gh)
	}
	if gh.RedirectURL != "http://localhost:9999/api/v1/auth/oauth/github/callback" {
		t.Errorf("github RedirectURL = %q", gh.RedirectURL)
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 7070
  app_name: Acme Splay App
security:
  jwt_secret: "` + testSecret + `"
forward:
  workers: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Server.AppName != "Acme Splay App" {
		t.Errorf("Server.AppName = %q", cfg.Server.AppName)
	}
	if cfg.Forward.Workers != 3 {
		t.Errorf("Forward.Workers = %d, want 3", cfg.Forward.Workers)
	}
	// Unset values keep their defaults.
	if cfg.Forward.QueueSize != 1024 {
		t.Errorf("Forward.QueueSize = %d, want default 1024", cfg.Forward.QueueSize)
	}
}

func TestLoadWithKoanf_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadWithKoanf()
	if err == nil {
		t.Fatal("expected error for missing JWT secret")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("error = %v, want mention of JWT_SECRET", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"DUCKDB_PATH", "database.path"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"OAUTH_GOOGLE_CLIENT_SECRET", "oauth.providers.google.client_secret"},
		{"OAUTH_MY_IDP_ISSUER", "oauth.providers.my_idp.issuer"},
		{"OAUTH__CLIENT_ID", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}
