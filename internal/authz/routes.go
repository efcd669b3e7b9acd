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
	"regexp"
	"sort"
)

// RoutePermissions maps client routes, without the /h/{slug} prefix, to the
// roles allowed to open them.
var RoutePermissions = map[string][]Role{
	"/dashboard":     {RoleAdmin, RoleOrganizer, RoleJudge, RoleSponsor, RoleParticipant},
	"/configuration": {RoleAdmin},
	"/participants":  {RoleAdmin, RoleOrganizer},
	"/schedule":      {RoleAdmin, RoleOrganizer, RoleJudge, RoleSponsor, RoleParticipant},
	"/messages":      {RoleAdmin, RoleOrganizer, RoleJudge, RoleSponsor, RoleParticipant},
	"/judging":       {RoleAdmin, RoleOrganizer, RoleJudge, RoleSponsor},
	"/results":       {RoleAdmin, RoleOrganizer, RoleJudge, RoleSponsor},
	"/submission":    {RoleAdmin, RoleParticipant},
	"/check-in":      {RoleAdmin, RoleOrganizer, RoleParticipant},
	"/profile":       {RoleAdmin, RoleOrganizer, RoleJudge, RoleSponsor, RoleParticipant},
	"/application":   {RoleAdmin, RoleApplicant},
}

const defaultHomeRoute = "/dashboard"

var homeRoutes = map[Role]string{
	RoleAdmin:       "/dashboard",
	RoleOrganizer:   "/dashboard",
	RoleJudge:       "/dashboard",
	RoleSponsor:     "/dashboard",
	RoleParticipant: "/dashboard",
	RoleApplicant:   "/application",
}

var hackathonRoutePrefix = regexp.MustCompile(`^/h/[^/]+(/.*)`)

// RoutePath strips the /h/{slug} prefix from a client path.
// Paths outside a hackathon are returned unchanged.
func RoutePath(fullPath string) string {
	if m := hackathonRoutePrefix.FindStringSubmatch(fullPath); m != nil {
		return m[1]
	}
	return fullPath
}

// CanAccessRoute reports whether role may open the client route.
// Routes missing from RoutePermissions are open to everyone.
func CanAccessRoute(role Role, route string) bool {
	allowed, ok := RoutePermissions[RoutePath(route)]
	if !ok {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// HomeRoute returns the landing page for role inside the hackathon.
func HomeRoute(role Role, slug string) string {
	base, ok := homeRoutes[role]
	if !ok {
		base = defaultHomeRoute
	}
	return "/h/" + slug + base
}

// AccessibleRoutes lists, in sorted order, the known routes role may open.
func AccessibleRoutes(role Role) []string {
	var routes []string
	for route := range RoutePermissions {
		if CanAccessRoute(role, route) {
			routes = append(routes, route)
		}
	}
	sort.Strings(routes)
	return routes
}
