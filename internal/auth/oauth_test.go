// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/models"
)

// mockOIDCServer serves discovery, JWKS and a token endpoint that signs
// RS256 ID tokens for codes registered with addCode.
type mockOIDCServer struct {
	server   *httptest.Server
	issuer   string
	clientID string
	key      *rsa.PrivateKey
	keyID    string

	mu    sync.Mutex
	codes map[string]jwt.MapClaims
}

func newMockOIDCServer(t *testing.T, clientID string) *mockOIDCServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	m := &mockOIDCServer{
		clientID: clientID,
		key:      key,
		keyID:    "test-key-1",
		codes:    map[string]jwt.MapClaims{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", m.handleDiscovery)
	mux.HandleFunc("/jwks", m.handleJWKS)
	mux.HandleFunc("/token", m.handleToken)
	m.server = httptest.NewServer(mux)
	m.issuer = m.server.URL
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockOIDCServer) addCode(code string, claims jwt.MapClaims) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code] = claims
}

func (m *mockOIDCServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (m *mockOIDCServer) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	m.writeJSON(w, http.StatusOK, map[string]interface{}{
		"issuer":                                m.issuer,
		"authorization_endpoint":                m.issuer + "/authorize",
		"token_endpoint":                        m.issuer + "/token",
		"jwks_uri":                              m.issuer + "/jwks",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"scopes_supported":                      []string{"openid", "profile", "email"},
	})
}

func (m *mockOIDCServer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	pub := m.key.PublicKey
	m.writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys": []map[string]interface{}{{
			"kty": "RSA",
			"kid": m.keyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (m *mockOIDCServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	m.mu.Lock()
	claims, ok := m.codes[r.FormValue("code")]
	delete(m.codes, r.FormValue("code"))
	m.mu.Unlock()
	if !ok {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	now := time.Now()
	idClaims := jwt.MapClaims{
		"iss": m.issuer,
		"aud": m.clientID,
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	}
	for k, v := range claims {
		idClaims[k] = v
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, idClaims)
	token.Header["kid"] = m.keyID
	idToken, err := token.SignedString(m.key)
	if err != nil {
		m.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	m.writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": "mock-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

func TestOIDCProvider_Exchange(t *testing.T) {
	ctx := context.Background()
	mock := newMockOIDCServer(t, "splay-client")

	p, err := NewOIDCProvider(ctx, "google", config.OAuthProviderConfig{
		ClientID:     "splay-client",
		ClientSecret: "secret",
		Issuer:       mock.issuer,
		RedirectURL:  "http://localhost:8090/api/v1/auth/oauth/google/callback",
	}, mock.server.Client())
	if err != nil {
		t.Fatalf("NewOIDCProvider: %v", err)
	}
	if p.Name() != "google" {
		t.Errorf("Expected name google, got %s", p.Name())
	}

	authURL, err := url.Parse(p.AuthURL("state-xyz"))
	if err != nil {
		t.Fatal(err)
	}
	if authURL.Query().Get("state") != "state-xyz" || authURL.Query().Get("client_id") != "splay-client" {
		t.Errorf("Unexpected auth URL %s", authURL)
	}

	mock.addCode("code-1", jwt.MapClaims{
		"sub":            "oidc-user-1",
		"email":          "person@example.com",
		"email_verified": true,
		"name":           "Person",
		"picture":        "https://example.com/p.png",
	})
	identity, err := p.Exchange(ctx, "code-1")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	want := &models.OAuthIdentity{
		Provider:  "google",
		Subject:   "oidc-user-1",
		Email:     "person@example.com",
		Name:      "Person",
		AvatarURL: "https://example.com/p.png",
		Verified:  true,
	}
	if diff := cmp.Diff(want, identity); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}

	if _, err := p.Exchange(ctx, "code-1"); !errors.Is(err, ErrOAuthExchange) {
		t.Errorf("Expected ErrOAuthExchange for used code, got %v", err)
	}
}

func TestNewOIDCProvider_RequiresIssuer(t *testing.T) {
	if _, err := NewOIDCProvider(context.Background(), "corp", config.OAuthProviderConfig{ClientID: "x"}, nil); err == nil {
		t.Error("Expected error without issuer")
	}
}

func newMockGitHub(t *testing.T, emails []gitHubEmail) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.FormValue("code") != "gh-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer","scope":"read:user,user:email"}`))
	})
	requireToken := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer gho_test" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/api/user", requireToken(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(gitHubUser{ID: 4242, Login: "octo", AvatarURL: "https://avatars.example.com/4242"})
	}))
	mux.HandleFunc("/api/user/emails", requireToken(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(emails)
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGitHubProvider(srv *httptest.Server) *gitHubProvider {
	return newGitHubProvider(config.OAuthProviderConfig{
		ClientID:     "gh-client",
		ClientSecret: "gh-secret",
		RedirectURL:  "http://localhost:8090/api/v1/auth/oauth/github/callback",
	}, oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}, srv.URL+"/api", srv.Client())
}

func TestGitHubProvider_Exchange(t *testing.T) {
	srv := newMockGitHub(t, []gitHubEmail{
		{Email: "old@example.com", Primary: false, Verified: true},
		{Email: "octo@example.com", Primary: true, Verified: true},
	})
	p := newTestGitHubProvider(srv)

	identity, err := p.Exchange(context.Background(), "gh-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	want := &models.OAuthIdentity{
		Provider:  GitHubProviderName,
		Subject:   "4242",
		Email:     "octo@example.com",
		Name:      "octo",
		AvatarURL: "https://avatars.example.com/4242",
		Verified:  true,
	}
	if diff := cmp.Diff(want, identity); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}
}

func TestGitHubProvider_UnverifiedEmail(t *testing.T) {
	srv := newMockGitHub(t, []gitHubEmail{{Email: "octo@example.com", Primary: true, Verified: false}})
	identity, err := newTestGitHubProvider(srv).Exchange(context.Background(), "gh-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if identity.Verified || identity.Email != "" {
		t.Errorf("Expected no verified email, got %+v", identity)
	}
}

func TestGitHubProvider_BadCode(t *testing.T) {
	srv := newMockGitHub(t, nil)
	if _, err := newTestGitHubProvider(srv).Exchange(context.Background(), "wrong"); !errors.Is(err, ErrOAuthExchange) {
		t.Errorf("Expected ErrOAuthExchange, got %v", err)
	}
}

func TestGitHubProvider_AuthURL(t *testing.T) {
	srv := newMockGitHub(t, nil)
	u, err := url.Parse(newTestGitHubProvider(srv).AuthURL("s1"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Query().Get("state") != "s1" || u.Query().Get("client_id") != "gh-client" {
		t.Errorf("Unexpected auth URL %s", u)
	}
}

func TestNewProviders_SkipsBrokenIssuer(t *testing.T) {
	mock := newMockOIDCServer(t, "splay-client")
	broken := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(broken.Close)

	providers := NewProviders(context.Background(), config.OAuthConfig{
		Providers: map[string]config.OAuthProviderConfig{
			"github": {ClientID: "gh"},
			"google": {ClientID: "splay-client", Issuer: mock.issuer},
			"broken": {ClientID: "x", Issuer: broken.URL},
		},
	}, mock.server.Client())

	if len(providers) != 2 {
		t.Fatalf("Expected 2 providers, got %d", len(providers))
	}
	if _, ok := providers["broken"]; ok {
		t.Error("Expected broken issuer to be skipped")
	}
}
