// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/splay/internal/database"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/metrics"
	"github.com/tomtom215/splay/internal/models"
)

// UserStore is the slice of the database the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	FindOrCreateOAuthUser(ctx context.Context, identity models.OAuthIdentity) (*models.User, bool, error)
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// Session is an issued session token and the user it belongs to.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"record"`
}

// Service implements signup, login, logout, password reset and OAuth login.
type Service struct {
	users     UserStore
	mailer    Mailer
	tokens    *TokenStore
	lockout   *LockoutManager
	jwt       *JWTManager
	providers map[string]Provider
	appURL    string
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Users     UserStore
	Mailer    Mailer
	Tokens    *TokenStore
	Lockout   *LockoutManager
	JWT       *JWTManager
	Providers map[string]Provider
	AppURL    string
}

// NewService creates the auth service.
func NewService(cfg ServiceConfig) *Service {
	lockout := cfg.Lockout
	if lockout == nil {
		lockout = NewLockoutManager(nil, nil)
	}
	providers := cfg.Providers
	if providers == nil {
		providers = map[string]Provider{}
	}
	return &Service{
		users:     cfg.Users,
		mailer:    cfg.Mailer,
		tokens:    cfg.Tokens,
		lockout:   lockout,
		jwt:       cfg.JWT,
		providers: providers,
		appURL:    strings.TrimSuffix(cfg.AppURL, "/"),
	}
}

// ProviderNames lists the enabled OAuth providers.
func (s *Service) ProviderNames() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

func (s *Service) issue(user *models.User) (*Session, error) {
	token, claims, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Signup creates a password account and signs it in.
func (s *Service) Signup(ctx context.Context, email, password, name string) (*Session, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		metrics.RecordLogin("signup", false)
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.RecordLogin("signup", true)

	logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("User signed up")
	return s.issue(user)
}

// Login verifies a password and returns a session. Repeated failures lock
// the email for the configured lockout period.
func (s *Service) Login(ctx context.Context, email, password, ip string) (*Session, error) {
	subject := strings.ToLower(strings.TrimSpace(email))

	locked, remaining, err := s.lockout.CheckLocked(ctx, subject)
	if err != nil {
		return nil, err
	}
	if locked {
		metrics.RecordLogin("password", false)
		return nil, fmt.Errorf("%w: retry in %s", ErrAccountLocked, remaining.Round(time.Second))
	}

	user, err := s.users.GetUserByEmail(ctx, subject)
	if err == nil {
		err = CheckPassword(user.PasswordHash, password)
	} else if errors.Is(err, database.ErrNotFound) {
		err = ErrInvalidCredentials
	}
	if err != nil {
		metrics.RecordLogin("password", false)
		if !errors.Is(err, ErrInvalidCredentials) {
			return nil, err
		}
		if nowLocked, _, lerr := s.lockout.RecordFailedAttempt(ctx, subject, ip); lerr != nil {
			logging.Ctx(ctx).Error().Err(lerr).Msg("Failed to record login failure")
		} else if nowLocked {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.lockout.RecordSuccessfulLogin(ctx, subject); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to clear lockout")
	}
	metrics.RecordLogin("password", true)
	return s.issue(user)
}

// Logout revokes the session for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	return s.tokens.Revoke(ctx, claims.ID, claims.Remaining())
}

// Refresh revokes the current session and issues a new one.
func (s *Service) Refresh(ctx context.Context, claims *Claims) (*Session, error) {
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if err := s.tokens.Revoke(ctx, claims.ID, claims.Remaining()); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Me returns the authenticated user.
func (s *Service) Me(ctx context.Context, claims *Claims) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return user, err
}

// RequestPasswordReset mails a reset link when email belongs to a user. It
// reports no error for unknown addresses so callers cannot enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			logging.Ctx(ctx).Debug().Str("email", logging.SanitizeEmail(email)).Msg("Password reset for unknown email")
			return nil
		}
		return err
	}

	token, err := s.tokens.CreateResetToken(ctx, user.ID)
	if err != nil {
		return err
	}
	link := s.appURL + "/confirm-password-reset/" + url.PathEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token and sets a new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	userID, err := s.tokens.ConsumeResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	logging.Ctx(ctx).Info().Str("user_id", userID).Msg("Password reset completed")
	return nil
}

// OAuthStart stores a fresh state and returns the provider's consent URL.
// redirect is the app path to land on after login.
func (s *Service) OAuthStart(ctx context.Context, provider, redirect string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	state, err := generateSecureRandom(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	err = s.tokens.SaveOAuthState(ctx, state, &OAuthState{
		Provider:  provider,
		Redirect:  safeRedirect(redirect),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return p.AuthURL(state), nil
}

// OAuthCallback validates state, exchanges code and signs the user in. It
// returns the session and the app URL to redirect the browser to.
func (s *Service) OAuthCallback(ctx context.Context, provider, state, code string) (*Session, string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, "", ErrUnknownProvider
	}
	saved, err := s.tokens.ConsumeOAuthState(ctx, state)
	if err != nil {
		return nil, "", err
	}
	if saved.Provider != provider {
		return nil, "", ErrInvalidState
	}

	identity, err := p.Exchange(ctx, code)
	if err != nil {
		metrics.RecordLogin("oauth", false)
		return nil, "", err
	}
	user, created, err := s.users.FindOrCreateOAuthUser(ctx, *identity)
	if err != nil {
		metrics.RecordLogin("oauth", false)
		if errors.Is(err, database.ErrConflict) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("resolve oauth user: %w", err)
	}
	metrics.RecordLogin("oauth", true)

	logging.Ctx(ctx).Info().
		Str("provider", provider).
		Str("user_id", user.ID).
		Bool("created", created).
		Msg("OAuth login")

	session, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return session, s.appURL + saved.Redirect, nil
}

// safeRedirect keeps only local absolute paths so the callback cannot be
// turned into an open redirect.
func safeRedirect(redirect string) string {
	if redirect == "" || !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") || strings.Contains(redirect, "\\") {
		return "/"
	}
	return redirect
}
