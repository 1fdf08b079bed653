package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "menuforge/internal/pkg/errors"
	"menuforge/internal/pkg/middleware"
)

type ctxKey struct{}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached by RequireAuth.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// verified identity to the request context.
func RequireAuth(tokens *Tokens, ew middleware.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				ew.Handle(w, r, apperrors.Unauthorized("authorization required"))
				return
			}
			id, err := tokens.Verify(raw)
			if err != nil {
				ew.Handle(w, r, apperrors.WrapWithCode(err, apperrors.CodeUnauthorized, "auth.verify", "invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects authenticated callers whose role differs from role.
// It must run after RequireAuth.
func RequireRole(role string, ew middleware.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				ew.Handle(w, r, apperrors.Unauthorized("authorization required"))
				return
			}
			if id.Role != role {
				ew.Handle(w, r, apperrors.Forbidden("access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
