package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserIDHeader carries the caller's identity. It is optional; requests
// without it are treated as anonymous.
const UserIDHeader = "X-User-ID"

// Identity copies a valid X-User-ID header into the request context.
// Malformed ids are rejected with 400.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := SanitizeString(r.Header.Get(UserIDHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		if err := ValidateUserID(raw); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), raw)))
	})
}

// WithUserID returns a copy of ctx carrying id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the caller id set by Identity, or "".
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
