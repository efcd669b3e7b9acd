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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// Assertion is the verified claim set the identity provider hands over after
// a completed login. It is trusted as-is; nothing here re-verifies it.
type Assertion struct {
	Subject    string `json:"sub"`
	Issuer     string `json:"iss"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Picture    string `json:"picture,omitempty"`
}

// Valid reports whether the assertion names a subject.
func (a *Assertion) Valid() bool {
	return a != nil && a.Subject != ""
}

// User is the local record of one person, keyed by (Subject, Issuer).
type User struct {
	ID         string    `json:"id"`
	Subject    string    `json:"oidc_sub"`
	Issuer     string    `json:"oidc_issuer"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	GivenName  string    `json:"given_name,omitempty"`
	FamilyName string    `json:"family_name,omitempty"`
	Picture    string    `json:"picture,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create inserts a new user. A second user with the same
	// (Subject, Issuer) yields ErrUserAlreadyExists.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by internal ID
	GetByID(ctx context.Context, id string) (*User, error)

	// FindBySubject retrieves a user by external identity
	FindBySubject(ctx context.Context, subject, issuer string) (*User, error)
}
