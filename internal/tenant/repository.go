package tenant

import (
	"context"
	"errors"
)

var (
	ErrHackathonNotFound = errors.New("hackathon not found")
	ErrSlugTaken         = errors.New("hackathon slug already exists")
	ErrInvalidHackathon  = errors.New("invalid hackathon")
	ErrRoleNotFound      = errors.New("role assignment not found")
	ErrInvalidRole       = errors.New("invalid role")
)

// Repository defines the interface for hackathon storage
type Repository interface {
	// Create inserts a hackathon; a duplicate slug yields ErrSlugTaken.
	Create(ctx context.Context, h *Hackathon) error
	GetBySlug(ctx context.Context, slug string) (*Hackathon, error)
	ListActive(ctx context.Context) ([]*Hackathon, error)
}

// RoleRepository defines the interface for per-hackathon role storage.
// A user holds at most one assignment per hackathon.
type RoleRepository interface {
	// AssignRole creates the assignment or replaces the role of an existing one.
	AssignRole(ctx context.Context, a *RoleAssignment) error
	RevokeRole(ctx context.Context, hackathonID, userID string) error
	// GetRoleBySubject finds the assignment joining the user's external
	// identity with the hackathon slug.
	GetRoleBySubject(ctx context.Context, subject, issuer, slug string) (*RoleAssignment, error)
	ListByHackathon(ctx context.Context, hackathonID string) ([]*Member, error)
}
