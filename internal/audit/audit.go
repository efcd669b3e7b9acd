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

package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Event types
const (
	TypeUserProvisioned  = "user_provisioned"
	TypeLoginSuccess     = "login_success"
	TypeLoginFailed      = "login_failed"
	TypeLogout           = "logout"
	TypeHackathonCreated = "hackathon_created"
	TypeRoleAssigned     = "role_assigned"
	TypeRoleRevoked      = "role_revoked"
	TypeAccessDenied     = "access_denied"
)

// Event represents an auditable action
type Event struct {
	Type        string
	HackathonID string
	ActorID     string
	Resource    string
	Metadata    map[string]any
	Timestamp   time.Time
	IPAddress   string
	UserAgent   string
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger on the default slog logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// NewSlogLoggerWith creates an audit logger that writes to l
func NewSlogLoggerWith(l *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: l}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_type", event.Type),
		slog.String("hackathon_id", event.HackathonID),
		slog.String("actor_id", event.ActorID),
		slog.String("resource", event.Resource),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	// Flatten metadata
	if len(event.Metadata) > 0 {
		group := []any{}
		for k, v := range event.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	attrs = append(attrs, slog.String("component", "audit"))

	logger := l.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "AUDIT_EVENT", attrs...)
}

var secretMarkers = []string{"password", "secret", "token", "key", "hash", "credential", "authorization", "cookie"}

// isSecret reports whether a metadata key likely holds a secret
func isSecret(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretMarkers {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
