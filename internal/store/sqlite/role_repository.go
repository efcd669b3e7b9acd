package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const assignmentColumns = `uhr.id, uhr.user_id, uhr.hackathon_id, uhr.role, uhr.created_at, uhr.updated_at`

// AssignRole stores the user's role in a hackathon, replacing an existing one.
// On replacement the stored ID and CreatedAt are written back to a.
func (r *RoleRepository) AssignRole(ctx context.Context, a *tenant.RoleAssignment) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO user_hackathon_roles (id, user_id, hackathon_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, hackathon_id)
		DO UPDATE SET role = excluded.role, updated_at = excluded.updated_at
	`, a.ID, a.UserID, a.HackathonID, a.Role, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	stored, err := scanAssignment(r.db.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM user_hackathon_roles uhr
		WHERE uhr.user_id = ? AND uhr.hackathon_id = ?
	`, a.UserID, a.HackathonID))
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	a.ID = stored.ID
	a.CreatedAt = stored.CreatedAt
	return nil
}

// RevokeRole removes the user's role from a hackathon
func (r *RoleRepository) RevokeRole(ctx context.Context, hackathonID, userID string) error {
	result, err := r.db.db.ExecContext(ctx, `
		DELETE FROM user_hackathon_roles
		WHERE hackathon_id = ? AND user_id = ?
	`, hackathonID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	if n == 0 {
		return tenant.ErrRoleNotFound
	}
	return nil
}

// GetRoleBySubject finds the stored role of an external identity in the
// hackathon with the given slug.
func (r *RoleRepository) GetRoleBySubject(ctx context.Context, subject, issuer, slug string) (*tenant.RoleAssignment, error) {
	a, err := scanAssignment(r.db.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM user_hackathon_roles uhr
		JOIN users u ON u.id = uhr.user_id
		JOIN hackathons h ON h.id = uhr.hackathon_id
		WHERE u.oidc_sub = ? AND u.oidc_issuer = ? AND h.slug = ?
	`, subject, issuer, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return a, nil
}

// ListByHackathon lists the members of a hackathon with their roles
func (r *RoleRepository) ListByHackathon(ctx context.Context, hackathonID string) ([]*tenant.Member, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.name, uhr.role, uhr.updated_at
		FROM user_hackathon_roles uhr
		JOIN users u ON u.id = uhr.user_id
		WHERE uhr.hackathon_id = ?
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
		var updatedAt string
		if err := rows.Scan(&m.UserID, &m.Email, &name, &m.Role, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
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

func scanAssignment(row scanner) (*tenant.RoleAssignment, error) {
	var a tenant.RoleAssignment
	var createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.UserID, &a.HackathonID, &a.Role, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
