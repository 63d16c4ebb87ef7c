package middleware

import (
	"context"

	"archipelago/backend/internal/security"
)

type contextKey struct{ name string }

var (
	userIDKey = contextKey{"user_id"}
	claimsKey = contextKey{"claims"}
)

// WithIdentity returns a context with the caller's user id and verified claims set.
// Handlers read these via GetUserID and GetClaims.
func WithIdentity(ctx context.Context, claims *security.AccessClaims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.Subject)
	ctx = context.WithValue(ctx, claimsKey, claims)
	return ctx
}

// GetUserID returns the user id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetClaims returns the verified access claims from context, or nil.
func GetClaims(ctx context.Context) *security.AccessClaims {
	v, _ := ctx.Value(claimsKey).(*security.AccessClaims)
	return v
}
