// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/splay/internal/auth"
	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/database"
	"github.com/tomtom215/splay/internal/forward"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/models"
	ws "github.com/tomtom215/splay/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "error",
		Format: "console",
		Output: io.Discard,
	})
}

// testDBSemaphore serializes DuckDB tests. Concurrent CGO calls from many
// parallel in-memory databases can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

const testJWTSecret = "test-secret-that-is-at-least-32-characters-long"

type fakePublisher struct {
	mu   sync.Mutex
	jobs []*models.ReceiveJob
	err  error
}

func (p *fakePublisher) PublishReceiveLog(_ context.Context, job *models.ReceiveJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *fakePublisher) published() []*models.ReceiveJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.ReceiveJob(nil), p.jobs...)
}

type fakeForwarder struct {
	mu   sync.Mutex
	jobs []*models.ReceiveJob
}

func (f *fakeForwarder) Enqueue(_ context.Context, job *models.ReceiveJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeForwarder) Stats() forward.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return forward.Stats{Queued: len(f.jobs), Workers: 2}
}

func (f *fakeForwarder) enqueued() []*models.ReceiveJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.ReceiveJob(nil), f.jobs...)
}

type fakeMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links == nil {
		m.links = map[string]string{}
	}
	m.links[to] = link
	return nil
}

func (m *fakeMailer) link(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[to]
}

type testEnv struct {
	cfg       *config.Config
	db        *database.DB
	tokens    *auth.TokenStore
	hub       *ws.Hub
	events    *fakePublisher
	forwarder *fakeForwarder
	mailer    *fakeMailer
	authMW    *auth.Middleware
	handler   *Handler
	server    http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			AppName: "Splay Test",
			AppURL:  "https://splay.example.com",
		},
		API: config.APIConfig{DefaultPageSize: 25, MaxPageSize: 500},
		Security: config.SecurityConfig{
			JWTSecret:         testJWTSecret,
			SessionTimeout:    time.Hour,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"https://app.example.com"},
		},
	}
}

// newTestEnv wires the router against an in-memory DuckDB and BadgerDB. The
// event bus and forwarder are fakes.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 1})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewTokenStore("")
	if err != nil {
		t.Fatalf("NewTokenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = tokens.Close() })

	jwtManager, err := auth.NewJWTManager(&cfg.Security, "splay-test")
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	env := &testEnv{
		cfg:       cfg,
		db:        db,
		tokens:    tokens,
		hub:       ws.NewHub(),
		events:    &fakePublisher{},
		forwarder: &fakeForwarder{},
		mailer:    &fakeMailer{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = env.hub.Serve(ctx) }()

	authMW := auth.NewMiddleware(jwtManager, tokens, cfg.Security.TrustedProxies, AuthFailureHandler)
	env.authMW = authMW
	svc := auth.NewService(auth.ServiceConfig{
		Users:  db,
		Mailer: env.mailer,
		Tokens: tokens,
		JWT:    jwtManager,
		AppURL: cfg.Server.AppURL,
	})

	env.handler = NewHandler(HandlerConfig{
		Store:      db,
		Auth:       svc,
		AuthMW:     authMW,
		Events:     env.events,
		Forwarder:  env.forwarder,
		Hub:        env.hub,
		Config:     cfg,
		AppVersion: "test",
	})
	chiMW := NewChiMiddleware(ChiMiddlewareConfigFromSecurity(cfg.Security))
	env.server = NewRouter(env.handler, authMW, chiMW, nil).SetupChi()
	return env
}

// do sends a request through the router. body is marshaled unless it is
// already a string.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// signup creates an account and returns its session token and user id.
func (e *testEnv) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":           email,
		"password":        "correct-horse",
		"passwordConfirm": "correct-horse",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d, body %s", email, rec.Code, rec.Body.String())
	}
	var session auth.Session
	decodeData(t, rec, &session)
	return session.Token, session.User.ID
}

// createBucket creates a bucket through the API.
func (e *testEnv) createBucket(t *testing.T, token, slug string) *models.Bucket {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/buckets", map[string]string{"name": "Bucket " + slug, "slug": slug}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bucket %s: status %d, body %s", slug, rec.Code, rec.Body.String())
	}
	var b models.Bucket
	decodeData(t, rec, &b)
	return &b
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q", env.Error.Code, code)
	}
}

func newRequest(method, path string, body io.Reader) *http.Request {
	if body == nil {
		body = http.NoBody
	}
	return httptest.NewRequest(method, path, body)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
