// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/tomtom215/splay/internal/logging"
)

const (
	// DefaultCSP is sent with every SPA response that has no policy yet.
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' http://127.0.0.1:* data: blob:; connect-src 'self' http://127.0.0.1:*; script-src 'self' 'sha256-GRUzBA7PzKYug7pqxv5rJaec5bwDCw1Vo6/IXwvD3Tc='"

	// assetCacheControl is sent for files that exist in the build.
	assetCacheControl = "max-age=1209600, stale-while-revalidate=86400"

	spaIndex = "index.html"
)

// SPAHandler serves the built web app. Paths that are not files in the
// build get index.html so client side routes survive a reload.
type SPAHandler struct {
	fsys  fs.FS
	files http.Handler
}

// NewSPAHandler serves fsys, which must contain index.html at its root.
func NewSPAHandler(fsys fs.FS) *SPAHandler {
	return &SPAHandler{
		fsys:  fsys,
		files: http.FileServer(http.FS(fsys)),
	}
}

func (s *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w.Header().Get("Content-Security-Policy") == "" {
		w.Header().Set("Content-Security-Policy", DefaultCSP)
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" || name == spaIndex {
		s.serveIndex(w, r)
		return
	}

	info, err := fs.Stat(s.fsys, name)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Ctx(r.Context()).Warn().Err(err).Str("path", sanitizeLogValue(name)).Msg("Static file lookup failed")
		}
		s.serveIndex(w, r)
		return
	}

	w.Header().Set("Cache-Control", assetCacheControl)
	s.files.ServeHTTP(w, r)
}

// serveIndex writes index.html without going through FileServer, which
// would redirect /index.html to /.
func (s *SPAHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	index, err := fs.ReadFile(s.fsys, spaIndex)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("SPA index.html missing")
		http.Error(w, "web app not built", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(index)
	}
}
