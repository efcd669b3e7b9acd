package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terrier-hq/terrier/internal/id"
	"github.com/terrier-hq/terrier/internal/identity"
)

func TestSQLitePath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"sqlite::memory:", ":memory:"},
		{"sqlite:", ":memory:"},
		{"sqlite:terrier.db", "terrier.db"},
		{"sqlite:///var/lib/terrier.db", "/var/lib/terrier.db"},
		{"file:terrier.db?cache=shared", "file:terrier.db?cache=shared"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, SQLitePath(tt.url))
		})
	}
}

// TestPurpose: Validates backend selection from the database URL.
// Scope: Unit Test
// Expected: sqlite URLs open a working embedded store; unknown schemes are rejected.
// Test Case ID: STO-01
func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{URL: "sqlite::memory:"})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "sqlite", s.Backend)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Migrate(ctx))

	now := time.Now()
	u := &identity.User{ID: id.NewUUIDv7(), Subject: "sub", Issuer: "https://idp.example.com", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Users.Create(ctx, u))
	got, err := s.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "sub", got.Subject)

	_, err = Open(ctx, Config{URL: "mysql://localhost/terrier"})
	assert.ErrorIs(t, err, ErrUnsupportedURL)
}
