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

import "strings"

// AdminSet is the immutable set of global-admin email addresses.
// Global admins hold the admin role in every hackathon.
type AdminSet struct {
	emails map[string]struct{}
}

// NewAdminSet builds an AdminSet. Addresses are trimmed and lowercased;
// empty entries are ignored.
func NewAdminSet(emails []string) AdminSet {
	set := AdminSet{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			set.emails[e] = struct{}{}
		}
	}
	return set
}

// Contains reports whether email belongs to a global admin.
// An empty address is never an admin.
func (s AdminSet) Contains(email string) bool {
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	_, ok := s.emails[email]
	return ok
}

// Len returns the number of configured admins.
func (s AdminSet) Len() int { return len(s.emails) }

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
