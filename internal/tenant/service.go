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

package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/terrier-hq/terrier/internal/audit"
	"github.com/terrier-hq/terrier/internal/id"
	"github.com/terrier-hq/terrier/internal/identity"
)

// Service provides hackathon management business logic
type Service struct {
	repo        Repository
	roleRepo    RoleRepository
	users       identity.UserRepository
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new hackathon service
func NewService(repo Repository, roleRepo RoleRepository, users identity.UserRepository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		roleRepo:    roleRepo,
		users:       users,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// CreateHackathonInput carries the fields accepted on creation
type CreateHackathonInput struct {
	Name        string
	Slug        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	IsActive    bool
}

// CreateHackathon validates and stores a new hackathon.
// New hackathons are inactive unless the caller activates them explicitly.
func (s *Service) CreateHackathon(ctx context.Context, in CreateHackathonInput, createdBy string) (*Hackathon, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidHackathon)
	}
	if !ValidSlug(in.Slug) {
		return nil, fmt.Errorf("%w: slug must be lowercase letters, digits and hyphens", ErrInvalidHackathon)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: start_date and end_date are required", ErrInvalidHackathon)
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidHackathon)
	}

	now := s.now()
	h := &Hackathon{
		ID:          id.NewUUIDv7(),
		Name:        name,
		Slug:        in.Slug,
		Description: strings.TrimSpace(in.Description),
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		IsActive:    in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, h); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:        audit.TypeHackathonCreated,
		HackathonID: h.ID,
		ActorID:     createdBy,
		Resource:    h.Slug,
	})

	return h, nil
}

// GetBySlug retrieves a hackathon by slug
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Hackathon, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// ListActive lists active hackathons
func (s *Service) ListActive(ctx context.Context) ([]*Hackathon, error) {
	return s.repo.ListActive(ctx)
}

// AssignRole sets the user's role in a hackathon, replacing any previous one.
// The role must already be validated by the caller.
func (s *Service) AssignRole(ctx context.Context, hackathonID, userID, role, grantedBy string) (*RoleAssignment, error) {
	if role == "" {
		return nil, ErrInvalidRole
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	a := &RoleAssignment{
		ID:          id.NewUUIDv7(),
		UserID:      userID,
		HackathonID: hackathonID,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.roleRepo.AssignRole(ctx, a); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:        audit.TypeRoleAssigned,
		HackathonID: hackathonID,
		ActorID:     grantedBy,
		Resource:    role,
		Metadata:    map[string]any{"user_id": userID},
	})

	return a, nil
}

// RevokeRole removes the user's role from a hackathon
func (s *Service) RevokeRole(ctx context.Context, hackathonID, userID, revokedBy string) error {
	if err := s.roleRepo.RevokeRole(ctx, hackathonID, userID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:        audit.TypeRoleRevoked,
		HackathonID: hackathonID,
		ActorID:     revokedBy,
		Resource:    "role",
		Metadata:    map[string]any{"user_id": userID},
	})

	return nil
}

// ListMembers lists users holding a role in a hackathon
func (s *Service) ListMembers(ctx context.Context, hackathonID string) ([]*Member, error) {
	return s.roleRepo.ListByHackathon(ctx, hackathonID)
}
