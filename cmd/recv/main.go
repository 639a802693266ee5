// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

// Command recv is a local forward destination for development. It accepts
// any JSON POST, logs the headers and body and answers 200, so forwarding
// can be watched end to end without an external service:
//
//	go run ./cmd/recv -port 9090
//
// and add http://127.0.0.1:9090/ as a forward setting.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/splay/internal/logging"
)

func main() {
	host := flag.String("host", "127.0.0.1", "address to listen on")
	port := flag.Int("port", 9090, "port to listen on")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logging.Init(logging.Config{Level: *level, Format: "console"})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", *host, *port),
		Handler:           newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logging.Info().Str("addr", server.Addr).Msg("Receiver listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("Receiver failed")
		os.Exit(1)
	}
}
