// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"archipelago/backend/internal/config"
	"archipelago/backend/internal/db"
	islanddomain "archipelago/backend/internal/island/domain"
	islandrepo "archipelago/backend/internal/island/repository"
	invitedomain "archipelago/backend/internal/invite/domain"
	inviterepo "archipelago/backend/internal/invite/repository"
	"archipelago/backend/internal/security"
	userdomain "archipelago/backend/internal/user/domain"
	userrepo "archipelago/backend/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	devUsername  = "dev"
	devPassword  = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	islands := islandrepo.NewPostgresRepository(conn)
	invites := inviterepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("check dev user: %v", err)
	}
	if existing != nil {
		fmt.Println("seed: dev user already present, nothing to do")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Username:     devUsername,
		Email:        devUserEmail,
		DisplayName:  "Dev User",
		Tag:          "Dev User",
		PasswordHash: hash,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("create dev user: %v", err)
	}
	if err := users.AddRole(ctx, user.ID, "user"); err != nil {
		log.Fatalf("add role: %v", err)
	}

	island := &islanddomain.Island{
		ID:          uuid.New().String(),
		Name:        "Dev Island",
		Description: "Sample island for local development",
		AuthorID:    user.ID,
		OwnerID:     user.ID,
		Version:     1,
		CreatedAt:   now,
	}
	if err := islands.CreateWithOwner(ctx, island); err != nil {
		log.Fatalf("create dev island: %v", err)
	}

	content, err := invitedomain.NewContentKey()
	if err != nil {
		log.Fatalf("invite key: %v", err)
	}
	link := &invitedomain.InviteLink{
		Content:       content,
		IslandID:      island.ID,
		AuthorID:      user.ID,
		EffectiveFrom: now,
	}
	if err := invites.Create(ctx, link); err != nil {
		log.Fatalf("create dev invite: %v", err)
	}

	fmt.Printf("seed: created user %s (%s / %s)\n", user.ID, devUserEmail, devPassword)
	fmt.Printf("seed: created island %s with open invite %s\n", island.ID, content)
}
