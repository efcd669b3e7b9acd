package authz_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terrier-hq/terrier/internal/authz"
	"github.com/terrier-hq/terrier/internal/identity"
	"github.com/terrier-hq/terrier/internal/observability/metrics"
	"github.com/terrier-hq/terrier/internal/tenant"
)

const issuer = "https://idp.example.com"

var errStorage = errors.New("connection reset")

// fakeDirectory is an in-memory implementation of the three lookups.
type fakeDirectory struct {
	mu          sync.Mutex
	users       map[string]*identity.User    // by subject
	hackathons  map[string]*tenant.Hackathon // by slug
	assignments map[string]map[string]string // slug -> subject -> role
	userErr     error
	hackErr     error
	roleErr     error
	roleCalls   int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:       map[string]*identity.User{},
		hackathons:  map[string]*tenant.Hackathon{},
		assignments: map[string]map[string]string{},
	}
}

func (f *fakeDirectory) dirs() authz.Directories {
	return authz.Directories{Users: f, Hackathons: f, Roles: f}
}

func (f *fakeDirectory) addUser(subject, email string) *identity.User {
	u := &identity.User{ID: "user-" + subject, Subject: subject, Issuer: issuer, Email: email}
	f.users[subject] = u
	return u
}

func (f *fakeDirectory) addHackathon(slug string) *tenant.Hackathon {
	h := &tenant.Hackathon{ID: "hack-" + slug, Slug: slug, Name: slug}
	f.hackathons[slug] = h
	return h
}

func (f *fakeDirectory) assign(slug, subject, role string) {
	if f.assignments[slug] == nil {
		f.assignments[slug] = map[string]string{}
	}
	f.assignments[slug][subject] = role
}

func (f *fakeDirectory) FindBySubject(_ context.Context, subject, iss string) (*identity.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	u, ok := f.users[subject]
	if !ok || u.Issuer != iss {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeDirectory) GetBySlug(_ context.Context, slug string) (*tenant.Hackathon, error) {
	if f.hackErr != nil {
		return nil, f.hackErr
	}
	h, ok := f.hackathons[slug]
	if !ok {
		return nil, tenant.ErrHackathonNotFound
	}
	return h, nil
}

func (f *fakeDirectory) GetRoleBySubject(_ context.Context, subject, iss, slug string) (*tenant.RoleAssignment, error) {
	f.mu.Lock()
	f.roleCalls++
	f.mu.Unlock()
	if f.roleErr != nil {
		return nil, f.roleErr
	}
	role, ok := f.assignments[slug][subject]
	u, known := f.users[subject]
	if !ok || !known || u.Issuer != iss {
		return nil, tenant.ErrRoleNotFound
	}
	return &tenant.RoleAssignment{
		ID:          "ra-" + subject,
		UserID:      u.ID,
		HackathonID: f.hackathons[slug].ID,
		Role:        role,
	}, nil
}

func assertion(subject, email string) *identity.Assertion {
	return &identity.Assertion{Subject: subject, Issuer: issuer, Email: email}
}

// TestPurpose: Validates the ordered outcomes of role resolution.
// Scope: Unit Test
// Security: Tenant isolation and error taxonomy
// Expected: Missing identity is unauthenticated, unknown slug is not found, no assignment is
// forbidden, and a stored assignment yields its role.
// Test Case ID: AUZ-05
func TestResolve_Outcomes(t *testing.T) {
	dir := newFakeDirectory()
	dir.addHackathon("summer25")
	dir.addHackathon("winter25")
	dir.addUser("alice", "alice@example.com")
	dir.addUser("bob", "bob@example.com")
	dir.assign("summer25", "alice", "judge")
	admins := authz.NewAdminSet(nil)
	ctx := context.Background()

	t.Run("nil assertion", func(t *testing.T) {
		_, err := authz.Resolve(ctx, "summer25", nil, admins, dir.dirs())
		assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("empty subject", func(t *testing.T) {
		_, err := authz.Resolve(ctx, "summer25", assertion("", "alice@example.com"), admins, dir.dirs())
		assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := authz.Resolve(ctx, "nonexistent", assertion("alice", "alice@example.com"), admins, dir.dirs())
		assert.ErrorIs(t, err, authz.ErrTenantNotFound)
	})

	t.Run("stored role", func(t *testing.T) {
		er, err := authz.Resolve(ctx, "summer25", assertion("alice", "alice@example.com"), admins, dir.dirs())
		require.NoError(t, err)
		assert.Equal(t, authz.EffectiveRole{
			UserID:      "user-alice",
			HackathonID: "hack-summer25",
			Role:        authz.RoleJudge,
			Slug:        "summer25",
		}, *er)
	})

	t.Run("assignment is tenant scoped", func(t *testing.T) {
		_, err := authz.Resolve(ctx, "winter25", assertion("alice", "alice@example.com"), admins, dir.dirs())
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("no assignment", func(t *testing.T) {
		_, err := authz.Resolve(ctx, "summer25", assertion("bob", "bob@example.com"), admins, dir.dirs())
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("other issuer", func(t *testing.T) {
		a := assertion("alice", "alice@example.com")
		a.Issuer = "https://other-idp.example.com"
		_, err := authz.Resolve(ctx, "summer25", a, admins, dir.dirs())
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})
}

// TestPurpose: Validates that the global-admin override is absolute.
// Scope: Unit Test
// Security: Global admin override precedes stored assignments
// Expected: Admins get "admin" on every existing tenant, even where a lower stored role exists,
// without consulting the assignment store.
// Test Case ID: AUZ-06
func TestResolve_GlobalAdminOverride(t *testing.T) {
	dir := newFakeDirectory()
	dir.addHackathon("summer25")
	dir.addHackathon("winter25")
	dir.addUser("root", "root@example.com")
	dir.assign("summer25", "root", "participant")
	admins := authz.NewAdminSet([]string{"Root@Example.com"})
	ctx := context.Background()

	for _, slug := range []string{"summer25", "winter25"} {
		er, err := authz.Resolve(ctx, slug, assertion("root", "ROOT@example.com"), admins, dir.dirs())
		require.NoError(t, err)
		assert.Equal(t, authz.RoleAdmin, er.Role)
		assert.Equal(t, "user-root", er.UserID)
		assert.Equal(t, "hack-"+slug, er.HackathonID)
	}
	assert.Zero(t, dir.roleCalls)

	_, err := authz.Resolve(ctx, "nonexistent", assertion("root", "root@example.com"), admins, dir.dirs())
	assert.ErrorIs(t, err, authz.ErrTenantNotFound)
}

// TestPurpose: Validates that a global admin must have been provisioned locally.
// Scope: Unit Test
// Expected: An admin email without a local user record is unauthenticated.
// Test Case ID: AUZ-07
func TestResolve_GlobalAdminWithoutLocalUser(t *testing.T) {
	dir := newFakeDirectory()
	dir.addHackathon("summer25")
	admins := authz.NewAdminSet([]string{"root@example.com"})

	_, err := authz.Resolve(context.Background(), "summer25", assertion("root", "root@example.com"), admins, dir.dirs())
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
}

// TestPurpose: Validates that storage failures are never downgraded to forbidden.
// Scope: Unit Test
// Security: Distinguishes "unknown" from "denied"
// Expected: Each lookup failure surfaces as ErrInternal wrapping the cause.
// Test Case ID: AUZ-08
func TestResolve_StorageFailures(t *testing.T) {
	admins := authz.NewAdminSet([]string{"root@example.com"})
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(d *fakeDirectory)
		email string
	}{
		{"hackathon lookup", func(d *fakeDirectory) { d.hackErr = errStorage }, "alice@example.com"},
		{"admin user lookup", func(d *fakeDirectory) { d.userErr = errStorage }, "root@example.com"},
		{"assignment lookup", func(d *fakeDirectory) { d.roleErr = errStorage }, "alice@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newFakeDirectory()
			dir.addHackathon("summer25")
			dir.addUser("alice", tt.email)
			tt.setup(dir)

			_, err := authz.Resolve(ctx, "summer25", assertion("alice", tt.email), admins, dir.dirs())
			assert.ErrorIs(t, err, authz.ErrInternal)
			assert.ErrorIs(t, err, errStorage)
			assert.NotErrorIs(t, err, authz.ErrForbidden)
		})
	}
}

func TestResolve_UnknownStoredRole(t *testing.T) {
	dir := newFakeDirectory()
	dir.addHackathon("summer25")
	dir.addUser("mallory", "mallory@example.com")
	dir.assign("summer25", "mallory", "superuser")

	_, err := authz.Resolve(context.Background(), "summer25", assertion("mallory", "mallory@example.com"),
		authz.NewAdminSet(nil), dir.dirs())
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestResolver_WithMetrics(t *testing.T) {
	dir := newFakeDirectory()
	dir.addHackathon("summer25")
	dir.addUser("alice", "alice@example.com")
	dir.assign("summer25", "alice", "organizer")

	inst, err := metrics.NewNoop().Instruments()
	require.NoError(t, err)

	r := authz.NewResolver(authz.NewAdminSet([]string{"root@example.com"}), dir.dirs()).
		WithMetrics(inst.AuthzDecisions, inst.ResolveDuration)

	er, err := r.Resolve(context.Background(), "summer25", assertion("alice", "alice@example.com"))
	require.NoError(t, err)
	assert.Equal(t, authz.RoleOrganizer, er.Role)
	assert.True(t, r.IsGlobalAdmin("ROOT@example.com"))
	assert.False(t, r.IsGlobalAdmin("alice@example.com"))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "allowed", authz.Outcome(nil))
	assert.Equal(t, "unauthenticated", authz.Outcome(authz.ErrUnauthenticated))
	assert.Equal(t, "not_found", authz.Outcome(authz.ErrTenantNotFound))
	assert.Equal(t, "forbidden", authz.Outcome(authz.ErrForbidden))
	assert.Equal(t, "error", authz.Outcome(errStorage))
}
