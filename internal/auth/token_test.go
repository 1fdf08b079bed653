package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuforge/internal/pkg/logger"
	"menuforge/internal/pkg/middleware"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	want := Identity{UserID: "u1", Username: "alice", Role: "user"}

	raw, err := tokens.Issue(want)
	require.NoError(t, err)

	got, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, got.IsAdmin())
}

func TestTokensReject(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	good, err := tokens.Issue(Identity{UserID: "u1", Username: "alice", Role: "user"})
	require.NoError(t, err)

	expired := NewTokens("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(Identity{UserID: "u1", Username: "alice", Role: "user"})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1", "username": "alice", "role": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": mustIssue(t, NewTokens("other", time.Hour)),
		"expired":      old,
		"unsigned":     none,
		"tampered":     good[:len(good)-2] + "xx",
		"empty":        "",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func mustIssue(t *testing.T, tokens *Tokens) string {
	t.Helper()
	raw, err := tokens.Issue(Identity{UserID: "u1", Username: "alice", Role: "user"})
	require.NoError(t, err)
	return raw
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1", 4)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
	assert.False(t, CheckPassword("not-a-hash", "secret1"))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(r))

	r.Header.Set("Authorization", "bearer  xyz ")
	assert.Equal(t, "xyz", BearerToken(r))

	r.Header.Set("Authorization", "Basic Zm9v")
	assert.Empty(t, BearerToken(r))
}

func TestRequireAuthAndRole(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	ew := middleware.ErrorWriter{Log: logger.New(logger.Config{Output: io.Discard})}

	var seen Identity
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	authed := RequireAuth(tokens, ew)(ok)
	adminOnly := RequireAuth(tokens, ew)(RequireRole("admin", ew)(ok))

	userToken := mustIssue(t, tokens)
	adminToken, err := tokens.Issue(Identity{UserID: "a1", Username: "admin", Role: "admin"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		handler http.Handler
		token   string
		want    int
	}{
		{"missing token", authed, "", http.StatusUnauthorized},
		{"bad token", authed, "nope", http.StatusUnauthorized},
		{"valid token", authed, userToken, http.StatusNoContent},
		{"user on admin route", adminOnly, userToken, http.StatusForbidden},
		{"admin on admin route", adminOnly, adminToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/me", nil)
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, r)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, "admin", seen.Username)
}
