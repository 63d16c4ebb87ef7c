package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archipelago/backend/internal/audit"
	auditrepo "archipelago/backend/internal/audit/repository"
	authservice "archipelago/backend/internal/auth/service"
	"archipelago/backend/internal/blob"
	"archipelago/backend/internal/config"
	"archipelago/backend/internal/db"
	islandrepo "archipelago/backend/internal/island/repository"
	islandservice "archipelago/backend/internal/island/service"
	inviterepo "archipelago/backend/internal/invite/repository"
	inviteservice "archipelago/backend/internal/invite/service"
	membershiprepo "archipelago/backend/internal/membership/repository"
	"archipelago/backend/internal/security"
	"archipelago/backend/internal/server"
	"archipelago/backend/internal/server/middleware"
	"archipelago/backend/internal/telemetry/otel"
	userrepo "archipelago/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "archipelago-api", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	blobs, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	users := userrepo.NewPostgresRepository(conn)
	islands := islandrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	invites := inviterepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)

	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := security.NewTokenProvider(
		[]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTTL(), cfg.RefreshGrace(),
	)

	authSvc := authservice.NewAuthService(users, hasher, tokens)
	islandSvc := islandservice.NewService(islands, memberships)
	inviteSvc := inviteservice.NewService(invites, islands)
	auditLogger := audit.NewLogger(audits, audit.RequestIP)

	middleware.InitMetrics()
	handler := server.NewHandler(server.Deps{
		DB:          conn,
		Tokens:      tokens,
		Blobs:       blobs,
		Users:       users,
		Islands:     islands,
		Memberships: memberships,
		Auth:        authSvc,
		Island:      islandSvc,
		Invite:      inviteSvc,
		AuditRepo:   audits,
		Audits:      auditLogger,
	})

	if err := server.Run(ctx, cfg.HTTPAddr, handler); err != nil {
		log.Fatalf("serve: %v", err)
	}
	log.Println("http server stopped")
}
