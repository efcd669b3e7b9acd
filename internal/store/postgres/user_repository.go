package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
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
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.ID, user.Subject, user.Issuer, user.Email,
		nullString(user.Name), nullString(user.GivenName), nullString(user.FamilyName), nullString(user.Picture),
		user.CreatedAt, user.UpdatedAt,
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
	row := r.db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindBySubject retrieves a user by external identity
func (r *UserRepository) FindBySubject(ctx context.Context, subject, issuer string) (*identity.User, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE oidc_sub = $1 AND oidc_issuer = $2
	`, subject, issuer)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*identity.User, error) {
	var user identity.User
	var name, givenName, familyName, picture sql.NullString

	err := row.Scan(
		&user.ID, &user.Subject, &user.Issuer, &user.Email,
		&name, &givenName, &familyName, &picture,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Name = name.String
	user.GivenName = givenName.String
	user.FamilyName = familyName.String
	user.Picture = picture.String
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
