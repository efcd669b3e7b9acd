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
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginState is carried across the identity provider round trip in a
// short-lived signed cookie.
type LoginState struct {
	State    string `json:"state"`
	Nonce    string `json:"nonce"`
	Redirect string `json:"redirect"`
}

type loginStateClaims struct {
	LoginState
	jwt.RegisteredClaims
}

// NewLoginState generates a fresh random state and nonce for a login that
// should end on redirect.
func NewLoginState(redirect string) (*LoginState, error) {
	state, err := randomToken()
	if err != nil {
		return nil, err
	}
	nonce, err := randomToken()
	if err != nil {
		return nil, err
	}
	return &LoginState{State: state, Nonce: nonce, Redirect: redirect}, nil
}

// SignLoginState signs ls for the state cookie.
func (m *Manager) SignLoginState(ls *LoginState) (string, error) {
	now := m.now().Truncate(time.Second)
	claims := loginStateClaims{
		LoginState: *ls,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{loginStateAud},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.stateLifetime)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.stateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign login state: %w", err)
	}
	return token, nil
}

// ParseLoginState verifies a state cookie.
func (m *Manager) ParseLoginState(token string) (*LoginState, error) {
	claims := &loginStateClaims{}
	if err := m.parse(token, claims, m.stateKey, loginStateAud); err != nil {
		return nil, err
	}
	if claims.State == "" || claims.Nonce == "" {
		return nil, fmt.Errorf("%w: incomplete login state", ErrSessionInvalid)
	}
	return &claims.LoginState, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
