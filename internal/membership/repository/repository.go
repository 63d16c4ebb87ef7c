package repository

import (
	"context"

	"archipelago/backend/internal/membership/domain"
)

// Repository defines reads and removals for island memberships. Rows are
// inserted only inside the island-creation and invite-redemption transactions,
// so there is no standalone Create.
type Repository interface {
	GetByUserAndIsland(ctx context.Context, userID, islandID string) (*domain.Membership, error)
	ListByIsland(ctx context.Context, islandID string) ([]*domain.Membership, error)
	DeleteByUserAndIsland(ctx context.Context, userID, islandID string) error
}
