package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/terrier-hq/terrier/internal/audit"
	"github.com/terrier-hq/terrier/internal/authz"
	"github.com/terrier-hq/terrier/internal/identity"
	"github.com/terrier-hq/terrier/internal/session"
	"github.com/terrier-hq/terrier/internal/store/sqlite"
	"github.com/terrier-hq/terrier/internal/tenant"
)

const (
	testAppURL  = "https://app.example.com"
	testIssuer  = "https://idp.example.com"
	testSecret  = "0123456789abcdef0123456789abcdef"
	adminEmail  = "root@example.com"
	authorizeEP = testIssuer + "/authorize"
	endEP       = testIssuer + "/logout"
)

// fakeIdP hands out assertions registered against authorization codes.
type fakeIdP struct {
	mu          sync.Mutex
	codes       map[string]*identity.Assertion
	lastNonce   string
	exchangeErr error
	noEndpoint  bool
}

func newFakeIdP() *fakeIdP {
	return &fakeIdP{codes: make(map[string]*identity.Assertion)}
}

func (f *fakeIdP) register(code string, a *identity.Assertion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = a
}

func (f *fakeIdP) AuthCodeURL(ctx context.Context, state, nonce string) (string, error) {
	f.mu.Lock()
	f.lastNonce = nonce
	f.mu.Unlock()
	q := url.Values{"state": {state}, "nonce": {nonce}}
	return authorizeEP + "?" + q.Encode(), nil
}

func (f *fakeIdP) Exchange(ctx context.Context, code, nonce string) (*identity.Assertion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if nonce != f.lastNonce {
		return nil, errors.New("nonce mismatch")
	}
	a, ok := f.codes[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	return a, nil
}

func (f *fakeIdP) EndSessionURL(ctx context.Context, postLogoutRedirect string) (string, error) {
	if f.noEndpoint {
		return "", nil
	}
	q := url.Values{"post_logout_redirect_uri": {postLogoutRedirect}}
	return endEP + "?" + q.Encode(), nil
}

// testEnv is a full router backed by an in-memory database.
type testEnv struct {
	t        *testing.T
	router   http.Handler
	idp      *fakeIdP
	sessions *session.Manager
	users    *sqlite.UserRepository
	tenants  *tenant.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := sqlite.NewUserRepository(db)
	hackathons := sqlite.NewHackathonRepository(db)
	roles := sqlite.NewRoleRepository(db)
	auditLogger := audit.NewSlogLogger()

	sessions, err := session.NewManager(session.Config{
		Secret:        testSecret,
		Lifetime:      time.Hour,
		StateLifetime: 5 * time.Minute,
	})
	require.NoError(t, err)

	resolver := authz.NewResolver(authz.NewAdminSet([]string{adminEmail}), authz.Directories{
		Users:      users,
		Hackathons: hackathons,
		Roles:      roles,
	})
	tenants := tenant.NewService(hackathons, roles, users, auditLogger)
	idp := newFakeIdP()

	h := NewHandler(
		identity.NewSyncService(users, auditLogger),
		users,
		resolver,
		tenants,
		idp,
		sessions,
		auditLogger,
		Config{AppURL: testAppURL, Cookies: CookieConfig{HTTPOnly: true}},
	)

	return &testEnv{
		t:        t,
		router:   NewRouter(h, nil),
		idp:      idp,
		sessions: sessions,
		users:    users,
		tenants:  tenants,
	}
}

func assertionFor(subject, email string) *identity.Assertion {
	return &identity.Assertion{Subject: subject, Issuer: testIssuer, Email: email, Name: subject}
}

// sessionCookie signs a session for a directly, skipping the login round trip.
func (e *testEnv) sessionCookie(a *identity.Assertion) *http.Cookie {
	e.t.Helper()
	token, _, err := e.sessions.Issue(a)
	require.NoError(e.t, err)
	return &http.Cookie{Name: "terrier_session", Value: token}
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// userID provisions a (if needed) and returns its local id.
func (e *testEnv) userID(a *identity.Assertion) string {
	e.t.Helper()
	rec := e.do(httptest.NewRequest(http.MethodGet, "/me", nil), e.sessionCookie(a))
	require.Equal(e.t, http.StatusOK, rec.Code)
	u, err := e.users.FindBySubject(context.Background(), a.Subject, a.Issuer)
	require.NoError(e.t, err)
	return u.ID
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
