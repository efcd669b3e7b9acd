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
	"log/slog"
	"time"

	"github.com/terrier-hq/terrier/internal/audit"
	"github.com/terrier-hq/terrier/internal/id"
	"github.com/terrier-hq/terrier/internal/observability/logger"
	"github.com/terrier-hq/terrier/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/terrier-hq/terrier/internal/identity")

// SyncService provisions local users for authenticated identities
type SyncService struct {
	repo        UserRepository
	auditLogger audit.Logger
	provisioned metric.Int64Counter
	now         func() time.Time
}

// NewSyncService creates a new identity sync service
func NewSyncService(repo UserRepository, auditLogger audit.Logger) *SyncService {
	return &SyncService{
		repo:        repo,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// WithProvisionCounter records every successful insert on c.
func (s *SyncService) WithProvisionCounter(c metric.Int64Counter) *SyncService {
	s.provisioned = c
	return s
}

// Sync makes sure a local user exists for the asserted identity and returns it.
//
// A known identity is returned untouched: profile fields are not refreshed
// from the assertion. Storage failures never propagate; the user may then be
// nil and provisioning is retried on the next request.
func (s *SyncService) Sync(ctx context.Context, a *Assertion) *User {
	if !a.Valid() {
		return nil
	}

	ctx, span := tracer.Start(ctx, "identity.Sync")
	defer span.End()

	user, err := s.repo.FindBySubject(ctx, a.Subject, a.Issuer)
	if err == nil {
		return user
	}
	if !errors.Is(err, ErrUserNotFound) {
		tracing.RecordFailure(span, err, "user lookup failed")
		slog.WarnContext(ctx, "identity sync lookup failed",
			logger.Subject(a.Subject),
			logger.Error(err),
		)
		return nil
	}

	now := s.now()
	user = &User{
		ID:         id.NewUUIDv7(),
		Subject:    a.Subject,
		Issuer:     a.Issuer,
		Email:      a.Email,
		Name:       a.Name,
		GivenName:  a.GivenName,
		FamilyName: a.FamilyName,
		Picture:    a.Picture,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		// A concurrent first login may have inserted the same identity.
		tracing.RecordFailure(span, err, "user insert failed")
		slog.WarnContext(ctx, "identity sync insert failed",
			logger.Subject(a.Subject),
			logger.Error(err),
		)
		return nil
	}

	span.SetAttributes(attribute.Bool("identity.provisioned", true))
	if s.provisioned != nil {
		s.provisioned.Add(ctx, 1)
	}

	slog.InfoContext(ctx, "user provisioned",
		logger.UserID(user.ID),
		logger.Subject(user.Subject),
	)
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserProvisioned,
		ActorID:  user.ID,
		Resource: "user",
		Metadata: map[string]any{"oidc_issuer": user.Issuer, "email": user.Email},
	})

	return user
}
