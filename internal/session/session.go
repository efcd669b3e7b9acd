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

package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/terrier-hq/terrier/internal/identity"
	"golang.org/x/crypto/hkdf"
)

// Domain errors
var (
	ErrSessionExpired = errors.New("session expired")
	ErrSessionInvalid = errors.New("session invalid")
	ErrSecretTooShort = errors.New("session secret must be at least 32 bytes")
)

const (
	tokenIssuer   = "terrier"
	sessionAud    = "terrier-session"
	loginStateAud = "terrier-login-state"
)

// Config holds session signing configuration
type Config struct {
	Secret        string
	Lifetime      time.Duration
	StateLifetime time.Duration
}

// Session is the authenticated state carried in the session cookie.
// There is no server-side session store: the cookie is the session.
type Session struct {
	Assertion identity.Assertion
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type sessionClaims struct {
	IdentityIssuer string `json:"idp"`
	Email          string `json:"email,omitempty"`
	Name           string `json:"name,omitempty"`
	GivenName      string `json:"given_name,omitempty"`
	FamilyName     string `json:"family_name,omitempty"`
	Picture        string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session and login-state tokens.
// Two keys are derived from the configured secret so that a token of one
// kind is never accepted as the other.
type Manager struct {
	sessionKey    []byte
	stateKey      []byte
	lifetime      time.Duration
	stateLifetime time.Duration
	now           func() time.Time
}

// NewManager creates a session manager
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrSecretTooShort
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = 24 * time.Hour
	}
	if cfg.StateLifetime <= 0 {
		cfg.StateLifetime = 10 * time.Minute
	}

	sessionKey, err := deriveKey(cfg.Secret, "terrier:session:v1")
	if err != nil {
		return nil, err
	}
	stateKey, err := deriveKey(cfg.Secret, "terrier:login-state:v1")
	if err != nil {
		return nil, err
	}

	return &Manager{
		sessionKey:    sessionKey,
		stateKey:      stateKey,
		lifetime:      cfg.Lifetime,
		stateLifetime: cfg.StateLifetime,
		now:           time.Now,
	}, nil
}

// Lifetime returns how long an issued session stays valid
func (m *Manager) Lifetime() time.Duration { return m.lifetime }

// StateLifetime returns how long a login state stays valid
func (m *Manager) StateLifetime() time.Duration { return m.stateLifetime }

// Issue signs a session for the assertion.
func (m *Manager) Issue(a *identity.Assertion) (string, *Session, error) {
	if !a.Valid() {
		return "", nil, fmt.Errorf("%w: assertion has no subject", ErrSessionInvalid)
	}

	now := m.now().Truncate(time.Second)
	s := &Session{Assertion: *a, IssuedAt: now, ExpiresAt: now.Add(m.lifetime)}

	claims := sessionClaims{
		IdentityIssuer: a.Issuer,
		Email:          a.Email,
		Name:           a.Name,
		GivenName:      a.GivenName,
		FamilyName:     a.FamilyName,
		Picture:        a.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   a.Subject,
			Audience:  jwt.ClaimStrings{sessionAud},
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			NotBefore: jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.sessionKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, s, nil
}

// Parse verifies a session token and returns the session it carries.
func (m *Manager) Parse(token string) (*Session, error) {
	claims := &sessionClaims{}
	if err := m.parse(token, claims, m.sessionKey, sessionAud); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrSessionInvalid)
	}

	return &Session{
		Assertion: identity.Assertion{
			Subject:    claims.Subject,
			Issuer:     claims.IdentityIssuer,
			Email:      claims.Email,
			Name:       claims.Name,
			GivenName:  claims.GivenName,
			FamilyName: claims.FamilyName,
			Picture:    claims.Picture,
		},
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (m *Manager) parse(token string, claims jwt.Claims, key []byte, audience string) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrSessionExpired
		}
		return fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}
	return nil
}

func deriveKey(secret, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}
