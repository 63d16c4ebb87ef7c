// Package server assembles the HTTP API: routing, middleware chain and the
// net/http server lifecycle.
package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"archipelago/backend/internal/audit"
	audithandler "archipelago/backend/internal/audit/handler"
	auditrepo "archipelago/backend/internal/audit/repository"
	authhandler "archipelago/backend/internal/auth/handler"
	authservice "archipelago/backend/internal/auth/service"
	"archipelago/backend/internal/blob"
	blobhandler "archipelago/backend/internal/blob/handler"
	healthhandler "archipelago/backend/internal/health/handler"
	islandhandler "archipelago/backend/internal/island/handler"
	islandrepo "archipelago/backend/internal/island/repository"
	islandservice "archipelago/backend/internal/island/service"
	membershiprepo "archipelago/backend/internal/membership/repository"
	invitehandler "archipelago/backend/internal/invite/handler"
	inviteservice "archipelago/backend/internal/invite/service"
	"archipelago/backend/internal/security"
	"archipelago/backend/internal/server/middleware"
	userhandler "archipelago/backend/internal/user/handler"
	userrepo "archipelago/backend/internal/user/repository"
)

// Deps carries everything the router needs. All fields are required except
// Audits, which falls back to a repository-less no-op logger.
type Deps struct {
	DB          *sql.DB
	Tokens      *security.TokenProvider
	Blobs       blob.Store
	Users       userrepo.Repository
	Islands     islandrepo.Repository
	Memberships membershiprepo.Repository
	Auth        *authservice.AuthService
	Island      *islandservice.Service
	Invite      *inviteservice.Service
	AuditRepo   auditrepo.Repository
	Audits      audit.AuditLogger
}

// NewHandler builds the full HTTP handler: all routes mounted on a ServeMux,
// wrapped by metrics, logging and bearer authentication.
func NewHandler(d Deps) http.Handler {
	if d.Audits == nil {
		d.Audits = audit.NewLogger(nil, nil)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", middleware.MetricsHandler())
	healthhandler.NewHandler(d.DB).Register(mux)
	authhandler.NewHandler(d.Auth, d.Audits).Register(mux)
	userhandler.NewHandler(d.Users, d.Blobs, d.Audits).Register(mux)
	islandhandler.NewHandler(d.Island, d.Islands, d.Memberships, d.Blobs, d.Audits).Register(mux)
	invitehandler.NewHandler(d.Invite, d.Audits).Register(mux)
	blobhandler.NewHandler(d.Blobs).Register(mux)
	if d.AuditRepo != nil {
		audithandler.NewHandler(d.AuditRepo, d.Islands).Register(mux)
	}

	var h http.Handler = mux
	h = middleware.RequireAuth(d.Tokens)(h)
	h = withRemoteAddr(h)
	h = middleware.Logging(h)
	h = middleware.Instrument(h)
	return h
}

// withRemoteAddr stores the client address in the request context so the
// audit logger can record it.
func withRemoteAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(audit.WithRemoteAddr(r.Context(), r)))
	})
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("http server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
