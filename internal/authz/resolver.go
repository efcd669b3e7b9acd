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

package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/terrier-hq/terrier/internal/identity"
	"github.com/terrier-hq/terrier/internal/observability/logger"
	"github.com/terrier-hq/terrier/internal/observability/tracing"
	"github.com/terrier-hq/terrier/internal/tenant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/terrier-hq/terrier/internal/authz")

// Resolution errors
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTenantNotFound  = errors.New("hackathon not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInternal        = errors.New("internal error")
)

// UserDirectory finds local users by external identity
type UserDirectory interface {
	FindBySubject(ctx context.Context, subject, issuer string) (*identity.User, error)
}

// TenantDirectory finds hackathons by slug
type TenantDirectory interface {
	GetBySlug(ctx context.Context, slug string) (*tenant.Hackathon, error)
}

// AssignmentStore finds the stored role of an identity in a hackathon
type AssignmentStore interface {
	GetRoleBySubject(ctx context.Context, subject, issuer, slug string) (*tenant.RoleAssignment, error)
}

// Directories groups the lookups the resolver depends on
type Directories struct {
	Users      UserDirectory
	Hackathons TenantDirectory
	Roles      AssignmentStore
}

// EffectiveRole is the role applied to a request in one hackathon
type EffectiveRole struct {
	UserID      string `json:"user_id"`
	HackathonID string `json:"hackathon_id"`
	Role        Role   `json:"role"`
	Slug        string `json:"slug"`
}

// Resolve computes the effective role of the asserted identity in the
// hackathon named by slug.
//
// Order matters: the hackathon must exist, then global admins get admin
// regardless of any stored assignment, then the stored assignment applies.
// Storage failures are reported as ErrInternal and never as ErrForbidden.
func Resolve(ctx context.Context, slug string, a *identity.Assertion, admins AdminSet, dirs Directories) (*EffectiveRole, error) {
	if !a.Valid() {
		return nil, ErrUnauthenticated
	}

	h, err := dirs.Hackathons.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, tenant.ErrHackathonNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("%w: failed to get hackathon: %w", ErrInternal, err)
	}

	if admins.Contains(a.Email) {
		user, err := dirs.Users.FindBySubject(ctx, a.Subject, a.Issuer)
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return nil, ErrUnauthenticated
			}
			return nil, fmt.Errorf("%w: failed to get user: %w", ErrInternal, err)
		}
		return &EffectiveRole{
			UserID:      user.ID,
			HackathonID: h.ID,
			Role:        RoleAdmin,
			Slug:        h.Slug,
		}, nil
	}

	assignment, err := dirs.Roles.GetRoleBySubject(ctx, a.Subject, a.Issuer, slug)
	if err != nil {
		if errors.Is(err, tenant.ErrRoleNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("%w: failed to get role assignment: %w", ErrInternal, err)
	}

	role, err := ParseRole(assignment.Role)
	if err != nil {
		slog.WarnContext(ctx, "stored role is not recognized",
			logger.UserID(assignment.UserID),
			logger.HackathonID(assignment.HackathonID),
			logger.Role(assignment.Role),
		)
		return nil, ErrForbidden
	}

	return &EffectiveRole{
		UserID:      assignment.UserID,
		HackathonID: h.ID,
		Role:        role,
		Slug:        h.Slug,
	}, nil
}

// Resolver binds the admin set and directories for repeated resolution.
// It is safe for concurrent use.
type Resolver struct {
	admins    AdminSet
	dirs      Directories
	decisions metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewResolver creates a resolver
func NewResolver(admins AdminSet, dirs Directories) *Resolver {
	return &Resolver{admins: admins, dirs: dirs}
}

// WithMetrics records every decision on decisions and its latency on duration.
// Either may be nil.
func (r *Resolver) WithMetrics(decisions metric.Int64Counter, duration metric.Float64Histogram) *Resolver {
	r.decisions = decisions
	r.duration = duration
	return r
}

// IsGlobalAdmin reports whether email belongs to a configured global admin.
func (r *Resolver) IsGlobalAdmin(email string) bool {
	return r.admins.Contains(email)
}

// Resolve computes the effective role; see the package-level Resolve.
func (r *Resolver) Resolve(ctx context.Context, slug string, a *identity.Assertion) (*EffectiveRole, error) {
	ctx, span := tracer.Start(ctx, "authz.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("hackathon.slug", slug))

	start := time.Now()
	er, err := Resolve(ctx, slug, a, r.admins, r.dirs)

	outcome := Outcome(err)
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if er != nil {
		attrs = append(attrs, attribute.String("role", er.Role.String()))
	}
	span.SetAttributes(attrs...)
	if errors.Is(err, ErrInternal) {
		tracing.RecordFailure(span, err, "role resolution failed")
	}

	if r.decisions != nil {
		r.decisions.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if r.duration != nil {
		r.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}

	return er, err
}

// Outcome names the decision for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrTenantNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
