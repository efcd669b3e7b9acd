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
	"errors"
	"fmt"
)

// ErrUnknownRole is returned when a stored role string names no known role.
var ErrUnknownRole = errors.New("unknown role")

// Role is a per-hackathon role. The zero value satisfies no capability.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOrganizer   Role = "organizer"
	RoleJudge       Role = "judge"
	RoleSponsor     Role = "sponsor"
	RoleParticipant Role = "participant"
	RoleApplicant   Role = "applicant"
)

// Roles lists every known role, most privileged first.
var Roles = []Role{RoleAdmin, RoleOrganizer, RoleJudge, RoleSponsor, RoleParticipant, RoleApplicant}

// ParseRole converts a stored role string into a Role.
// Matching is exact; stored values are expected in lowercase.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleJudge, RoleSponsor, RoleParticipant, RoleApplicant:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// IsAdmin is satisfied by admin only.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// IsOrganizer is satisfied by admin and organizer.
func (r Role) IsOrganizer() bool { return r == RoleAdmin || r == RoleOrganizer }

// IsJudge is satisfied by admin, organizer and judge.
func (r Role) IsJudge() bool { return r.IsOrganizer() || r == RoleJudge }

// IsSponsor is satisfied by admin, organizer and sponsor.
func (r Role) IsSponsor() bool { return r.IsOrganizer() || r == RoleSponsor }

// IsParticipant is satisfied by admin and participant. Organizers do not
// inherit it: staff and competitor roles are kept apart.
func (r Role) IsParticipant() bool { return r == RoleAdmin || r == RoleParticipant }

// IsApplicant is satisfied by admin and applicant.
func (r Role) IsApplicant() bool { return r == RoleAdmin || r == RoleApplicant }

// Capability names one of the role predicates so that routes can declare
// what they require.
type Capability string

const (
	CapAdmin       Capability = "is_admin"
	CapOrganizer   Capability = "is_organizer"
	CapJudge       Capability = "is_judge"
	CapSponsor     Capability = "is_sponsor"
	CapParticipant Capability = "is_participant"
	CapApplicant   Capability = "is_applicant"
)

// Has reports whether r satisfies the capability. Unknown capabilities
// are never satisfied.
func (r Role) Has(c Capability) bool {
	switch c {
	case CapAdmin:
		return r.IsAdmin()
	case CapOrganizer:
		return r.IsOrganizer()
	case CapJudge:
		return r.IsJudge()
	case CapSponsor:
		return r.IsSponsor()
	case CapParticipant:
		return r.IsParticipant()
	case CapApplicant:
		return r.IsApplicant()
	default:
		return false
	}
}

// Capabilities returns every capability r satisfies.
func (r Role) Capabilities() []Capability {
	var caps []Capability
	for _, c := range []Capability{CapAdmin, CapOrganizer, CapJudge, CapSponsor, CapParticipant, CapApplicant} {
		if r.Has(c) {
			caps = append(caps, c)
		}
	}
	return caps
}
