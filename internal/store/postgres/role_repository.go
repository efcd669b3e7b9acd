package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/terrier-hq/terrier/internal/tenant"
)

// RoleRepository implements tenant.RoleRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role assignment repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// AssignRole stores the user's role in a hackathon, replacing an existing one.
// On replacement the stored ID and CreatedAt are written back to a.
func (r *RoleRepository) AssignRole(ctx context.Context, a *tenant.RoleAssignment) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO user_hackathon_roles (id, user_id, hackathon_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, hackathon_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`, a.ID, a.UserID, a.HackathonID, a.Role, a.CreatedAt, a.UpdatedAt).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// RevokeRole removes the user's role from a hackathon
func (r *RoleRepository) RevokeRole(ctx context.Context, hackathonID, userID string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_hackathon_roles
		WHERE hackathon_id = $1 AND user_id = $2
	`, hackathonID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return tenant.ErrRoleNotFound
	}
	return nil
}

// GetRoleBySubject finds the stored role of an external identity in the
// hackathon with the given slug.
func (r *RoleRepository) GetRoleBySubject(ctx context.Context, subject, issuer, slug string) (*tenant.RoleAssignment, error) {
	var a tenant.RoleAssignment
	err := r.db.pool.QueryRow(ctx, `
		SELECT uhr.id, uhr.user_id, uhr.hackathon_id, uhr.role, uhr.created_at, uhr.updated_at
		FROM user_hackathon_roles uhr
		JOIN users u ON u.id = uhr.user_id
		JOIN hackathons h ON h.id = uhr.hackathon_id
		WHERE u.oidc_sub = $1 AND u.oidc_issuer = $2 AND h.slug = $3
	`, subject, issuer, slug).Scan(&a.ID, &a.UserID, &a.HackathonID, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &a, nil
}

// ListByHackathon lists the members of a hackathon with their roles
func (r *RoleRepository) ListByHackathon(ctx context.Context, hackathonID string) ([]*tenant.Member, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT u.id, u.email, u.name, uhr.role, uhr.updated_at
		FROM user_hackathon_roles uhr
		JOIN users u ON u.id = uhr.user_id
		WHERE uhr.hackathon_id = $1
		ORDER BY u.email ASC
	`, hackathonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*tenant.Member{}
	for rows.Next() {
		var m tenant.Member
		var name sql.NullString
		if err := rows.Scan(&m.UserID, &m.Email, &name, &m.Role, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Name = name.String
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
