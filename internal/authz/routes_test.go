package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terrier-hq/terrier/internal/authz"
)

func TestRoutePath(t *testing.T) {
	assert.Equal(t, "/judging", authz.RoutePath("/h/summer25/judging"))
	assert.Equal(t, "/judging/queue", authz.RoutePath("/h/summer25/judging/queue"))
	assert.Equal(t, "/h/summer25", authz.RoutePath("/h/summer25"))
	assert.Equal(t, "/dashboard", authz.RoutePath("/dashboard"))
}

// TestPurpose: Validates the client route permission table.
// Scope: Unit Test
// Expected: Staff-only pages reject competitors, competitor pages reject staff, unknown pages are open.
// Test Case ID: AUZ-04
func TestCanAccessRoute(t *testing.T) {
	tests := []struct {
		role  authz.Role
		route string
		want  bool
	}{
		{authz.RoleAdmin, "/h/summer25/configuration", true},
		{authz.RoleOrganizer, "/h/summer25/configuration", false},
		{authz.RoleOrganizer, "/h/summer25/participants", true},
		{authz.RoleJudge, "/h/summer25/judging", true},
		{authz.RoleSponsor, "/h/summer25/results", true},
		{authz.RoleParticipant, "/h/summer25/judging", false},
		{authz.RoleParticipant, "/h/summer25/submission", true},
		{authz.RoleOrganizer, "/h/summer25/submission", false},
		{authz.RoleOrganizer, "/h/summer25/check-in", true},
		{authz.RoleJudge, "/h/summer25/check-in", false},
		{authz.RoleApplicant, "/h/summer25/dashboard", false},
		{authz.RoleApplicant, "/h/summer25/application", true},
		{authz.RoleJudge, "/h/summer25/application", false},
		{authz.RoleApplicant, "/h/summer25/unlisted", true},
		{"", "/h/summer25/profile", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, authz.CanAccessRoute(tt.role, tt.route))
		})
	}
}

func TestHomeRoute(t *testing.T) {
	assert.Equal(t, "/h/summer25/dashboard", authz.HomeRoute(authz.RoleJudge, "summer25"))
	assert.Equal(t, "/h/summer25/application", authz.HomeRoute(authz.RoleApplicant, "summer25"))
	assert.Equal(t, "/h/summer25/dashboard", authz.HomeRoute("unknown", "summer25"))
}

func TestAccessibleRoutes(t *testing.T) {
	assert.Equal(t, []string{"/application"}, authz.AccessibleRoutes(authz.RoleApplicant))
	assert.Len(t, authz.AccessibleRoutes(authz.RoleAdmin), len(authz.RoutePermissions))
	assert.Equal(t,
		[]string{"/check-in", "/dashboard", "/messages", "/profile", "/schedule", "/submission"},
		authz.AccessibleRoutes(authz.RoleParticipant))
}
