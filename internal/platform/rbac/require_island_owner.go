package rbac

import (
	"context"
	"fmt"

	islanddomain "archipelago/backend/internal/island/domain"
	"archipelago/backend/internal/server/middleware"
)

// IslandGetter resolves an island by id. Used to decide owner-level access.
type IslandGetter interface {
	GetByID(ctx context.Context, id string) (*islanddomain.Island, error)
}

// RequireIslandOwner ensures the caller is authenticated and owns the island.
// Returns the caller's user id on success. A missing island is reported as
// ErrForbidden so the check does not leak island existence to outsiders.
func RequireIslandOwner(ctx context.Context, getter IslandGetter, islandID string) (string, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		return "", ErrUnauthenticated
	}
	if islandID == "" {
		return "", ErrForbidden
	}
	isl, err := getter.GetByID(ctx, islandID)
	if err != nil {
		return "", fmt.Errorf("resolve island: %w", err)
	}
	if isl == nil || isl.OwnerID != userID {
		return "", ErrForbidden
	}
	return userID, nil
}
