package middleware

import (
	"net/http"
	"strings"

	"archipelago/backend/internal/security"
)

// publicPaths are reachable without a bearer token.
var publicPaths = map[string]bool{
	"/healthz":          true,
	"/metrics":          true,
	"/api/auth/sign-up": true,
	"/api/auth/sign-in": true,
	"/api/auth/refresh": true,
}

// filesPrefix serves stored images; image tags cannot attach bearer headers.
const filesPrefix = "/api/files/"

// RequireAuth verifies the Authorization bearer token on every request whose
// path is not public, and stores the resulting identity in the request context.
func RequireAuth(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, filesPrefix) {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := extractBearer(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}
			claims, err := tokens.ParseAccess(raw)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims)))
		})
	}
}

func extractBearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
