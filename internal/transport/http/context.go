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

package http

import (
	"context"

	"github.com/terrier-hq/terrier/internal/authz"
	"github.com/terrier-hq/terrier/internal/identity"
)

type contextKey string

const (
	assertionKey     contextKey = "assertion"
	userKey          contextKey = "user"
	effectiveRoleKey contextKey = "effective_role"
)

// GetAssertion retrieves the identity asserted by the session cookie.
func GetAssertion(ctx context.Context) *identity.Assertion {
	if val, ok := ctx.Value(assertionKey).(*identity.Assertion); ok {
		return val
	}
	return nil
}

// GetUser retrieves the local user synced for this request. It is nil when
// the request is anonymous or provisioning failed.
func GetUser(ctx context.Context) *identity.User {
	if val, ok := ctx.Value(userKey).(*identity.User); ok {
		return val
	}
	return nil
}

// GetEffectiveRole retrieves the role resolved for the hackathon in the path.
func GetEffectiveRole(ctx context.Context) *authz.EffectiveRole {
	if val, ok := ctx.Value(effectiveRoleKey).(*authz.EffectiveRole); ok {
		return val
	}
	return nil
}

// actorID names the caller in audit events: the local user ID when known,
// otherwise the external subject.
func actorID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.ID
	}
	if a := GetAssertion(ctx); a != nil {
		return a.Subject
	}
	return ""
}
