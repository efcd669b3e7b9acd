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

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/terrier-hq/terrier/internal/identity"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, oidc_sub, oidc_issuer, email, name, given_name, family_name, picture, created_at, updated_at`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID, user.Subject, user.Issuer, user.Email,
		nullString(user.Name), nullString(user.GivenName), nullString(user.FamilyName), nullString(user.Picture),
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	row := r.db.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// FindBySubject retrieves a user by external identity
func (r *UserRepository) FindBySubject(ctx context.Context, subject, issuer string) (*identity.User, error) {
	row := r.db.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE oidc_sub = ? AND oidc_issuer = ?
	`, subject, issuer)
	return scanUser(row)
}

func scanUser(row scanner) (*identity.User, error) {
	var user identity.User
	var name, givenName, familyName, picture sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&user.ID, &user.Subject, &user.Issuer, &user.Email,
		&name, &givenName, &familyName, &picture,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Name = name.String
	user.GivenName = givenName.String
	user.FamilyName = familyName.String
	user.Picture = picture.String
	return &user, nil
}
