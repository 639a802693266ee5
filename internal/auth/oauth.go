// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/models"
)

// Provider is an external login provider.
type Provider interface {
	Name() string
	// AuthURL returns the provider URL the browser is redirected to.
	AuthURL(state string) string
	// Exchange trades an authorization code for the caller's identity.
	Exchange(ctx context.Context, code string) (*models.OAuthIdentity, error)
}

// GitHubProviderName selects the GitHub OAuth2 provider. Every other
// provider name is treated as an OIDC issuer.
const GitHubProviderName = "github"

var defaultOIDCScopes = []string{oidc.ScopeOpenID, oidc.ScopeEmail, oidc.ScopeProfile}

// NewProviders builds the configured providers. A provider whose discovery
// fails is skipped with a warning so one broken issuer does not block startup.
func NewProviders(ctx context.Context, cfg config.OAuthConfig, httpClient *http.Client) map[string]Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make(map[string]Provider, len(names))
	for _, name := range names {
		pc := cfg.Providers[name]
		var (
			p   Provider
			err error
		)
		if name == GitHubProviderName {
			p = NewGitHubProvider(pc, httpClient)
		} else {
			p, err = NewOIDCProvider(ctx, name, pc, httpClient)
		}
		if err != nil {
			logging.Warn().Err(err).Str("provider", name).Msg("OAuth provider disabled")
			continue
		}
		providers[name] = p
		logging.Info().Str("provider", name).Msg("OAuth provider enabled")
	}
	return providers
}

// oidcProvider logs users in through an OIDC issuer using the zitadel
// relying party.
type oidcProvider struct {
	name string
	rp   rp.RelyingParty
}

// NewOIDCProvider runs discovery against pc.Issuer and returns the provider.
func NewOIDCProvider(ctx context.Context, name string, pc config.OAuthProviderConfig, httpClient *http.Client) (Provider, error) {
	if pc.Issuer == "" {
		return nil, fmt.Errorf("provider %s: issuer is required", name)
	}
	scopes := pc.Scopes
	if len(scopes) == 0 {
		scopes = defaultOIDCScopes
	}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx,
		pc.Issuer,
		pc.ClientID,
		pc.ClientSecret,
		pc.RedirectURL,
		scopes,
		rp.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create relying party: %w", err)
	}
	return &oidcProvider{name: name, rp: relyingParty}, nil
}

func (p *oidcProvider) Name() string { return p.name }

func (p *oidcProvider) AuthURL(state string) string {
	return rp.AuthURL(state, p.rp)
}

func (p *oidcProvider) Exchange(ctx context.Context, code string) (*models.OAuthIdentity, error) {
	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, p.rp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	claims := tokens.IDTokenClaims
	if claims == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: no id token claims", ErrOAuthExchange)
	}
	return &models.OAuthIdentity{
		Provider:  p.name,
		Subject:   claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
		Verified:  bool(claims.EmailVerified),
	}, nil
}

// gitHubProvider logs users in with GitHub's OAuth2 endpoints and user API.
type gitHubProvider struct {
	conf       *oauth2.Config
	apiBase    string
	httpClient *http.Client
}

// NewGitHubProvider returns a provider against github.com.
func NewGitHubProvider(pc config.OAuthProviderConfig, httpClient *http.Client) Provider {
	return newGitHubProvider(pc, github.Endpoint, "https://api.github.com", httpClient)
}

func newGitHubProvider(pc config.OAuthProviderConfig, endpoint oauth2.Endpoint, apiBase string, httpClient *http.Client) *gitHubProvider {
	scopes := pc.Scopes
	if len(scopes) == 0 {
		scopes = []string{"read:user", "user:email"}
	}
	return &gitHubProvider{
		conf: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  pc.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		apiBase:    strings.TrimSuffix(apiBase, "/"),
		httpClient: httpClient,
	}
}

func (p *gitHubProvider) Name() string { return GitHubProviderName }

func (p *gitHubProvider) AuthURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type gitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type gitHubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *gitHubProvider) Exchange(ctx context.Context, code string) (*models.OAuthIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	client := p.conf.Client(ctx, tok)

	var user gitHubUser
	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: github user has no id", ErrOAuthExchange)
	}

	identity := &models.OAuthIdentity{
		Provider:  GitHubProviderName,
		Subject:   strconv.FormatInt(user.ID, 10),
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
	if identity.Name == "" {
		identity.Name = user.Login
	}

	// The profile email is unverified and often hidden; prefer the primary
	// verified address.
	var emails []gitHubEmail
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		logging.Warn().Err(err).Msg("GitHub email lookup failed")
		return identity, nil
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			identity.Email = e.Email
			identity.Verified = true
			break
		}
	}
	return identity, nil
}

func (p *gitHubProvider) getJSON(ctx context.Context, client *http.Client, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: github %s: %w", ErrOAuthExchange, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: github %s returned %d", ErrOAuthExchange, path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read github %s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode github %s: %w", path, err)
	}
	return nil
}
