package repository

import (
	"context"

	"archipelago/backend/internal/user/domain"
)

// Repository defines persistence for users and their role memberships.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByLogin resolves login as either a username or an email.
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	RolesOf(ctx context.Context, userID string) ([]string, error)
	AddRole(ctx context.Context, userID, role string) error
	UpdateProfile(ctx context.Context, id, displayName, tag, bannerColor string) (*domain.User, error)
	SetAvatar(ctx context.Context, id, filename string) error
	SetBanner(ctx context.Context, id, filename string) error
}
