// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tomtom215/splay/internal/api"
	"github.com/tomtom215/splay/internal/auth"
	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/database"
	"github.com/tomtom215/splay/internal/events"
	"github.com/tomtom215/splay/internal/forward"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/mail"
	"github.com/tomtom215/splay/internal/retention"
	"github.com/tomtom215/splay/internal/supervisor"
	"github.com/tomtom215/splay/internal/supervisor/services"
	ws "github.com/tomtom215/splay/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("app_url", cfg.Server.AppURL).
		Msg("Starting Splay")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	tokens, err := auth.NewTokenStore(cfg.Security.TokenStorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open token store")
	}
	defer func() {
		if err := tokens.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing token store")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security, cfg.Server.AppName)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create JWT manager")
	}

	bus, err := events.New(cfg.Events)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event bus")
	}
	if cfg.Events.NATSURL != "" {
		logging.Info().Str("nats_url", cfg.Events.NATSURL).Msg("Event bus connected to NATS")
	} else {
		logging.Info().Msg("Event bus running in process")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridges zerolog to slog for sutureslog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === DATA LAYER ===
	lockout := auth.NewLockoutManager(nil, lockoutConfig(cfg.Security))
	tree.AddDataService(tokens)
	tree.AddDataService(lockout)
	if cfg.Retention.Days > 0 {
		tree.AddDataService(retention.NewSweeper(db, cfg.Retention))
		logging.Info().Int("days", cfg.Retention.Days).Msg("Log retention enabled")
	}

	// === MESSAGING LAYER ===
	wsHub := ws.NewHub()
	forwarder := forward.New(cfg.Forward, db, bus)

	intakeSub, err := bus.Subscriber(true)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to subscribe forwarder to receive logs")
	}
	tree.AddMessagingService(wsHub)
	tree.AddMessagingService(ws.NewBridge(wsHub, bus))
	tree.AddMessagingService(forwarder)
	tree.AddMessagingService(events.NewConsumer("forward-intake", events.TopicReceiveLogs, intakeSub, forwarder.HandleReceiveLog))
	tree.AddMessagingService(services.NewCloserService("event-bus", bus))
	logging.Info().Msg("WebSocket hub, event bridge and forwarder added to supervisor tree")

	// === API LAYER ===
	authMW := auth.NewMiddleware(jwtManager, tokens, cfg.Security.TrustedProxies, api.AuthFailureHandler)
	authService := auth.NewService(auth.ServiceConfig{
		Users:     db,
		Mailer:    mail.New(cfg.SMTP, cfg.Server.AppName),
		Tokens:    tokens,
		Lockout:   lockout,
		JWT:       jwtManager,
		Providers: auth.NewProviders(ctx, cfg.OAuth, nil),
		AppURL:    cfg.Server.AppURL,
	})
	if names := authService.ProviderNames(); len(names) > 0 {
		logging.Info().Strs("providers", names).Msg("OAuth login enabled")
	}

	handler := api.NewHandler(api.HandlerConfig{
		Store:      db,
		Auth:       authService,
		AuthMW:     authMW,
		Events:     bus,
		Forwarder:  forwarder,
		Hub:        wsHub,
		Config:     cfg,
		AppVersion: version,
	})
	chiMW := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security))
	router := api.NewRouter(handler, authMW, chiMW, newSPA(cfg.Server.StaticDir))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// lockoutConfig applies the configured attempt limit and period to the
// default lockout settings.
func lockoutConfig(sec config.SecurityConfig) *auth.LockoutConfig {
	lc := auth.DefaultLockoutConfig()
	if sec.LockoutMaxAttempts > 0 {
		lc.MaxAttempts = sec.LockoutMaxAttempts
	}
	if sec.LockoutDuration > 0 {
		lc.LockoutDuration = sec.LockoutDuration
	}
	return lc
}

// newSPA serves the built web app from dir. It returns nil, leaving the
// server API only, when dir has no index.html.
func newSPA(dir string) http.Handler {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		logging.Warn().Str("static_dir", dir).Msg("Web app not found, serving API only")
		return nil
	}
	logging.Info().Str("static_dir", dir).Msg("Serving web app")
	return api.NewSPAHandler(os.DirFS(dir))
}
