// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package main

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/middleware"
)

const maxBodyBytes = 5 << 20

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Post("/*", receive)
	return r
}

// receive logs a JSON body with the headers it came with. Non JSON bodies
// are rejected the way the Splay receiver rejects them.
func receive(w http.ResponseWriter, r *http.Request) {
	log := logging.Ctx(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read body")
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !json.Valid(body) {
		log.Warn().Str("path", r.URL.Path).Int("bytes", len(body)).Msg("Rejected non JSON body")
		http.Error(w, "body is not json", http.StatusBadRequest)
		return
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		compact.Reset()
		compact.Write(body)
	}

	event := log.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote", r.RemoteAddr).
		RawJSON("body", compact.Bytes())
	for name, values := range r.Header {
		event = event.Strs("h_"+name, values)
	}
	event.Msg("Webhook received")

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"success":"true"}` + "\n"))
}
