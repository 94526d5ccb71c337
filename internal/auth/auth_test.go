package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) *Authenticator {
	t.Helper()
	return New(Config{
		APIKeys:   []string{"key-one", "key-two"},
		JWTSecret: "test-secret",
		JWTExpiry: time.Minute,
	})
}

func TestDisabledWithoutKeys(t *testing.T) {
	a := New(Config{})
	assert.False(t, a.Enabled())

	r := httptest.NewRequest("GET", "/api/v1/models", nil)
	assert.NoError(t, a.Authenticate(r), "open mode should accept bare requests")
}

func TestCheckKey(t *testing.T) {
	a := newTestAuth(t)
	assert.NoError(t, a.CheckKey("key-one"))
	assert.NoError(t, a.CheckKey("key-two"))
	assert.ErrorIs(t, a.CheckKey("wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, a.CheckKey(""), ErrMissingCredentials)
}

func TestAuthenticateHeader(t *testing.T) {
	a := newTestAuth(t)

	r := httptest.NewRequest("POST", "/api/v1/generate", nil)
	assert.ErrorIs(t, a.Authenticate(r), ErrMissingCredentials)

	r.Header.Set(DefaultHeader, "key-one")
	assert.NoError(t, a.Authenticate(r))

	r.Header.Set(DefaultHeader, "bogus")
	assert.ErrorIs(t, a.Authenticate(r), ErrInvalidCredentials)
}

func TestCustomHeaderName(t *testing.T) {
	a := New(Config{APIKeys: []string{"k"}, Header: "X-Custom-Key"})
	r := httptest.NewRequest("GET", "/api/v1/status", nil)
	r.Header.Set("X-Custom-Key", "k")
	assert.NoError(t, a.Authenticate(r))
}

func TestIssueAndCheckToken(t *testing.T) {
	a := newTestAuth(t)

	tok, expiresIn, err := a.IssueToken("key-one")
	require.NoError(t, err)
	assert.Equal(t, int64(60), expiresIn)
	assert.NoError(t, a.CheckToken(tok))

	r := httptest.NewRequest("POST", "/api/v1/chat", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	assert.NoError(t, a.Authenticate(r))
}

func TestIssueTokenRequiresValidKey(t *testing.T) {
	a := newTestAuth(t)
	_, _, err := a.IssueToken("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCheckTokenRejectsTampered(t *testing.T) {
	a := newTestAuth(t)
	tok, _, err := a.IssueToken("key-one")
	require.NoError(t, err)

	assert.Error(t, a.CheckToken(tok+"x"))
	assert.Error(t, a.CheckToken(""))

	other := New(Config{APIKeys: []string{"key-one"}, JWTSecret: "different"})
	assert.Error(t, other.CheckToken(tok), "token signed with another secret must fail")
}

func TestExpiredTokenRejected(t *testing.T) {
	a := New(Config{APIKeys: []string{"k"}, JWTSecret: "s", JWTExpiry: -time.Minute})
	// Expiry floor kicks in at construction, so force a short-lived one.
	a.jwtExpiry = 1 * time.Millisecond
	tok, _, err := a.IssueToken("k")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	assert.Error(t, a.CheckToken(tok))
}
