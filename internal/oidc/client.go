// Copyright 2026 The Terrier Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/terrier-hq/terrier/internal/identity"
	"github.com/terrier-hq/terrier/internal/observability/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2"
)

var tracer = otel.Tracer("github.com/terrier-hq/terrier/internal/oidc")

// Config holds the relying-party registration
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// HTTPClient is used for discovery and token requests. A traced client
	// with a 10 second timeout is used when nil.
	HTTPClient *http.Client
}

// Discovery is the subset of the provider metadata the client uses
// (OIDC Discovery Section 3)
type Discovery struct {
	Issuer                string   `json:"issuer"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	UserInfoEndpoint      string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI               string   `json:"jwks_uri"`
	EndSessionEndpoint    string   `json:"end_session_endpoint,omitempty"`
	ScopesSupported       []string `json:"scopes_supported,omitempty"`
}

// Client is an OpenID Connect relying party for a single provider.
// Discovery is fetched lazily and cached for the life of the client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mu        sync.RWMutex
	discovery *Discovery
}

// NewClient creates a relying-party client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("oidc: issuer is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("oidc: client id is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "profile", "email"}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{cfg: cfg, httpClient: httpClient, now: time.Now}, nil
}

// Discover fetches the provider metadata from the issuer.
func (c *Client) Discover(ctx context.Context) (*Discovery, error) {
	c.mu.RLock()
	if c.discovery != nil {
		d := c.discovery
		c.mu.RUnlock()
		return d, nil
	}
	c.mu.RUnlock()

	ctx, span := tracer.Start(ctx, "oidc.Discover")
	defer span.End()

	endpoint := strings.TrimRight(c.cfg.Issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tracing.RecordFailure(span, err, "discovery failed")
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDiscovery, resp.StatusCode)
	}

	var d Discovery
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	if d.AuthorizationEndpoint == "" || d.TokenEndpoint == "" {
		return nil, fmt.Errorf("%w: metadata lacks authorization or token endpoint", ErrDiscovery)
	}
	if d.Issuer == "" {
		d.Issuer = c.cfg.Issuer
	}

	c.mu.Lock()
	c.discovery = &d
	c.mu.Unlock()

	return &d, nil
}

func (c *Client) oauth2Config(d *Discovery) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURL,
		Scopes:       c.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  d.AuthorizationEndpoint,
			TokenURL: d.TokenEndpoint,
		},
	}
}

// AuthCodeURL builds the authorization request for the code flow.
func (c *Client) AuthCodeURL(ctx context.Context, state, nonce string) (string, error) {
	d, err := c.Discover(ctx)
	if err != nil {
		return "", err
	}
	return c.oauth2Config(d).AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce)), nil
}

type idTokenClaims struct {
	Nonce      string `json:"nonce,omitempty"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Picture    string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Exchange redeems an authorization code and returns the identity asserted
// by the ID token.
//
// The ID token arrives over TLS directly from the token endpoint, so its
// signature is not checked again here (OIDC Core 3.1.3.7, item 6). Issuer,
// audience, expiry and nonce are still validated.
func (c *Client) Exchange(ctx context.Context, code, nonce string) (*identity.Assertion, error) {
	d, err := c.Discover(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "oidc.Exchange")
	defer span.End()

	tok, err := c.oauth2Config(d).Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), code)
	if err != nil {
		tracing.RecordFailure(span, err, "code exchange failed")
		return nil, fmt.Errorf("%w: %w", ErrExchange, err)
	}

	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, ErrMissingIDToken
	}

	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
	}

	validator := jwt.NewValidator(
		jwt.WithIssuer(d.Issuer),
		jwt.WithAudience(c.cfg.ClientID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Minute),
		jwt.WithTimeFunc(c.now),
	)
	if err := validator.Validate(claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidIDToken)
	}
	if claims.Nonce != nonce {
		return nil, ErrNonceMismatch
	}

	return &identity.Assertion{
		Subject:    claims.Subject,
		Issuer:     claims.Issuer,
		Email:      claims.Email,
		Name:       claims.Name,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Picture:    claims.Picture,
	}, nil
}

// EndSessionURL builds the RP-initiated logout URL returning to
// postLogoutRedirect. It returns "" when the provider advertises no
// end_session_endpoint.
func (c *Client) EndSessionURL(ctx context.Context, postLogoutRedirect string) (string, error) {
	d, err := c.Discover(ctx)
	if err != nil {
		return "", err
	}
	if d.EndSessionEndpoint == "" {
		return "", nil
	}

	u, err := url.Parse(d.EndSessionEndpoint)
	if err != nil {
		return "", fmt.Errorf("%w: bad end_session_endpoint: %w", ErrDiscovery, err)
	}
	q := u.Query()
	q.Set("client_id", c.cfg.ClientID)
	if postLogoutRedirect != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
