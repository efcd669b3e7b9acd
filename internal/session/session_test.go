package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terrier-hq/terrier/internal/identity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: testSecret, Lifetime: time.Hour, StateLifetime: 5 * time.Minute})
	require.NoError(t, err)
	return m
}

// TestPurpose: Validates that a signed session carries the full identity assertion.
// Scope: Unit Test
// Security: Session integrity (HS256 with a derived key)
// Expected: Parse returns the subject, issuer and profile fields given to Issue.
// Test Case ID: SES-01
func TestSession_IssueAndParse(t *testing.T) {
	m := newTestManager(t)
	a := &identity.Assertion{
		Subject: "sub-123",
		Issuer:  "https://idp.example.com",
		Email:   "alice@example.com",
		Name:    "Alice Doe",
		Picture: "https://cdn.example.com/alice.png",
	}

	token, issued, err := m.Issue(a)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, issued.ExpiresAt.Sub(issued.IssuedAt))

	s, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, *a, s.Assertion)
	assert.False(t, s.IsExpired(time.Now()))
}

// TestPurpose: Validates expiry and tamper detection.
// Scope: Unit Test
// Security: Replay of stale cookies and forged payloads
// Expected: Expired tokens yield ErrSessionExpired; altered or foreign tokens yield ErrSessionInvalid.
// Test Case ID: SES-02
func TestSession_Rejections(t *testing.T) {
	m := newTestManager(t)
	token, _, err := m.Issue(&identity.Assertion{Subject: "sub-123", Issuer: "https://idp.example.com"})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		late := *m
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Parse(token)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("tampered signature", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		forged := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
		_, err := m.Parse(forged)
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewManager(Config{Secret: strings.Repeat("z", 32)})
		require.NoError(t, err)
		_, err = other.Parse(token)
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})
}

func TestSession_IssueRequiresSubject(t *testing.T) {
	m := newTestManager(t)
	_, _, err := m.Issue(&identity.Assertion{Issuer: "https://idp.example.com"})
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, _, err = m.Issue(nil)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSession_ShortSecret(t *testing.T) {
	_, err := NewManager(Config{Secret: "short"})
	assert.ErrorIs(t, err, ErrSecretTooShort)
}

// TestPurpose: Validates the login state round trip and key separation.
// Scope: Unit Test
// Security: CSRF protection of the login callback
// Expected: State and nonce survive signing; a state token is never accepted as a session and vice versa.
// Test Case ID: SES-03
func TestLoginState(t *testing.T) {
	m := newTestManager(t)

	ls, err := NewLoginState("https://app.example.com/h/summer25/dashboard")
	require.NoError(t, err)
	assert.Len(t, ls.State, 43)
	assert.NotEqual(t, ls.State, ls.Nonce)

	token, err := m.SignLoginState(ls)
	require.NoError(t, err)

	got, err := m.ParseLoginState(token)
	require.NoError(t, err)
	assert.Equal(t, ls, got)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	sessionToken, _, err := m.Issue(&identity.Assertion{Subject: "sub-123"})
	require.NoError(t, err)
	_, err = m.ParseLoginState(sessionToken)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	late := *m
	late.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = late.ParseLoginState(token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}
