// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"context"
	"time"

	"github.com/tomtom215/splay/internal/auth"
	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/database"
	"github.com/tomtom215/splay/internal/forward"
	"github.com/tomtom215/splay/internal/models"
	ws "github.com/tomtom215/splay/internal/websocket"
)

// Store is the persistence the handlers need. *database.DB implements it.
type Store interface {
	Ping(ctx context.Context) error

	CreateBucket(ctx context.Context, bucket *models.Bucket) error
	GetBucket(ctx context.Context, owner, id string) (*models.Bucket, error)
	GetBucketBySlug(ctx context.Context, owner, slug string) (*models.Bucket, error)
	GetBucketForReceive(ctx context.Context, slug string) (*models.Bucket, error)
	ListBuckets(ctx context.Context, owner string, page, perPage int) (models.ListResult[models.Bucket], error)
	UpdateBucket(ctx context.Context, owner, id string, upd database.BucketUpdate) (*models.Bucket, error)
	DeleteBucket(ctx context.Context, owner, id string) error

	CreateForwardSetting(ctx context.Context, owner string, setting *models.ForwardSetting) error
	GetForwardSetting(ctx context.Context, owner, id string) (*models.ForwardSetting, error)
	ListForwardSettings(ctx context.Context, owner, bucketID string) ([]models.ForwardSetting, error)
	UpdateForwardSetting(ctx context.Context, owner, id string, upd database.ForwardSettingUpdate) (*models.ForwardSetting, error)
	DeleteForwardSetting(ctx context.Context, owner, id string) error

	InsertReceiveLog(ctx context.Context, l *models.BucketReceiveLog) error
	GetReceiveLog(ctx context.Context, owner, id string) (*models.BucketReceiveLog, error)
	ListReceiveLogs(ctx context.Context, f models.LogFilter) (models.ListResult[models.BucketReceiveLog], error)
	GetForwardLog(ctx context.Context, owner, id string) (*models.BucketForwardLog, error)
	ListForwardLogsByBucket(ctx context.Context, f models.LogFilter) (models.ListResult[models.BucketForwardLog], error)
	ListForwardLogsByReceiveLog(ctx context.Context, f models.LogFilter) (models.ListResult[models.BucketForwardLog], error)
}

// AuthService implements the account endpoints. *auth.Service implements it.
type AuthService interface {
	Signup(ctx context.Context, email, password, name string) (*auth.Session, error)
	Login(ctx context.Context, email, password, ip string) (*auth.Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Refresh(ctx context.Context, claims *auth.Claims) (*auth.Session, error)
	Me(ctx context.Context, claims *auth.Claims) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) error
	OAuthStart(ctx context.Context, provider, redirect string) (string, error)
	OAuthCallback(ctx context.Context, provider, state, code string) (*auth.Session, string, error)
	ProviderNames() []string
}

// EventPublisher publishes stored webhooks to the event bus.
type EventPublisher interface {
	PublishReceiveLog(ctx context.Context, job *models.ReceiveJob) error
}

// Forwarder accepts webhooks for relaying when the event bus cannot.
type Forwarder interface {
	Enqueue(ctx context.Context, job *models.ReceiveJob) error
	Stats() forward.Stats
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_receive.go: the public webhook receiver
//   - handlers_auth.go: signup, login, sessions, password reset, OAuth
//   - handlers_buckets.go: bucket and forward setting CRUD
//   - handlers_logs.go: receive and forward log queries
//   - handlers_websocket.go: realtime log events
//   - handlers_health.go: health endpoint
type Handler struct {
	store      Store
	auth       AuthService
	authMW     *auth.Middleware
	events     EventPublisher
	forwarder  Forwarder
	wsHub      *ws.Hub
	config     *config.Config
	startTime  time.Time
	appVersion string
}

// HandlerConfig wires a Handler. Events and Forwarder may be nil; at least
// one should be set or received webhooks are stored but never relayed.
type HandlerConfig struct {
	Store      Store
	Auth       AuthService
	AuthMW     *auth.Middleware
	Events     EventPublisher
	Forwarder  Forwarder
	Hub        *ws.Hub
	Config     *config.Config
	AppVersion string
}

// NewHandler creates a new API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		store:      cfg.Store,
		auth:       cfg.Auth,
		authMW:     cfg.AuthMW,
		events:     cfg.Events,
		forwarder:  cfg.Forwarder,
		wsHub:      cfg.Hub,
		config:     cfg.Config,
		startTime:  time.Now(),
		appVersion: cfg.AppVersion,
	}
}
