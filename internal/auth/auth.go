// Package auth resolves the caller identity for API requests. The
// service runs behind a gateway that authenticates users and forwards
// the identity in a trusted header; this package lifts it into the
// request context.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// HeaderUser is the trusted header the gateway sets after
// authenticating the caller.
const HeaderUser = "X-Authenticated-User"

type contextKey string

const identityKey contextKey = "auth_identity"

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, identityKey, userID)
}

// UserID returns the authenticated user id from the context, or the
// empty string for anonymous requests.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey).(string); ok {
		return id
	}
	return ""
}

// Middleware lifts the gateway identity header into the request
// context. Requests without the header proceed as anonymous; handlers
// that require an identity reject them.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := strings.TrimSpace(r.Header.Get(HeaderUser)); userID != "" {
			r = r.WithContext(WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}
