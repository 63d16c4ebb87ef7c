package repository

import (
	"context"

	"archipelago/backend/internal/island/domain"
)

// Repository defines persistence for islands.
type Repository interface {
	// CreateWithOwner persists the island and the owner's membership as one
	// transaction; a partial write is never observable.
	CreateWithOwner(ctx context.Context, i *domain.Island) error
	GetByID(ctx context.Context, id string) (*domain.Island, error)
	ListByMember(ctx context.Context, userID string) ([]*domain.Island, error)
	// UpdateCAS updates the mutable metadata if the stored version still equals
	// i.Version, bumping the version on success. Returns ErrVersionConflict when
	// another writer got there first.
	UpdateCAS(ctx context.Context, i *domain.Island) (*domain.Island, error)
	SetLogo(ctx context.Context, id, filename string) error
	SetBanner(ctx context.Context, id, filename string) error
}
