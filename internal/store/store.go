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

// Package store selects a storage backend from a database URL.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terrier-hq/terrier/internal/identity"
	"github.com/terrier-hq/terrier/internal/store/postgres"
	"github.com/terrier-hq/terrier/internal/store/sqlite"
	"github.com/terrier-hq/terrier/internal/tenant"
)

// ErrUnsupportedURL is returned for database URLs no backend understands
var ErrUnsupportedURL = errors.New("unsupported database url")

// Config holds database configuration
type Config struct {
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

// Store bundles the repositories of one backend
type Store struct {
	Backend    string
	Users      identity.UserRepository
	Hackathons tenant.Repository
	Roles      tenant.RoleRepository

	ping    func(context.Context) error
	migrate func(context.Context) error
	close   func()
}

// Open connects to the backend named by cfg.URL:
// postgres:// and postgresql:// use pgx, sqlite: and file: use embedded SQLite.
// SQLite databases are migrated on open; postgres needs an explicit Migrate.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	switch {
	case strings.HasPrefix(cfg.URL, "postgres://"), strings.HasPrefix(cfg.URL, "postgresql://"):
		db, err := postgres.New(ctx, postgres.Config{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		return &Store{
			Backend:    "postgres",
			Users:      postgres.NewUserRepository(db),
			Hackathons: postgres.NewHackathonRepository(db),
			Roles:      postgres.NewRoleRepository(db),
			ping:       db.Ping,
			migrate: func(ctx context.Context) error {
				return db.Migrate(ctx, postgres.InitialSchema)
			},
			close: db.Close,
		}, nil

	case strings.HasPrefix(cfg.URL, "sqlite:"), strings.HasPrefix(cfg.URL, "file:"):
		db, err := sqlite.Open(ctx, SQLitePath(cfg.URL))
		if err != nil {
			return nil, err
		}
		return &Store{
			Backend:    "sqlite",
			Users:      sqlite.NewUserRepository(db),
			Hackathons: sqlite.NewHackathonRepository(db),
			Roles:      sqlite.NewRoleRepository(db),
			ping:       db.Ping,
			migrate:    db.Migrate,
			close:      func() { _ = db.Close() },
		}, nil
	}

	return nil, fmt.Errorf("%w: expected postgres://, postgresql://, sqlite: or file:", ErrUnsupportedURL)
}

// SQLitePath converts a sqlite: URL into the path handed to the driver.
// file: URIs pass through unchanged.
func SQLitePath(url string) string {
	if strings.HasPrefix(url, "file:") {
		return url
	}
	path := strings.TrimPrefix(url, "sqlite:")
	path = strings.TrimPrefix(path, "//")
	if path == "" {
		return ":memory:"
	}
	return path
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Migrate applies the backend's embedded schema
func (s *Store) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

// Close releases the backend's connections
func (s *Store) Close() {
	s.close()
}
