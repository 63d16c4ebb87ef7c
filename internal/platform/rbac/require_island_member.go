package rbac

import (
	"context"
	"errors"
	"fmt"

	"archipelago/backend/internal/membership/domain"
	"archipelago/backend/internal/server/middleware"
)

var (
	// ErrUnauthenticated means no caller identity was present in the context.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the caller lacks the required standing on the island.
	ErrForbidden = errors.New("forbidden")
)

// MembershipGetter resolves a user's membership on an island. Used to decide member-level access.
type MembershipGetter interface {
	GetByUserAndIsland(ctx context.Context, userID, islandID string) (*domain.Membership, error)
}

// RequireIslandMember ensures the caller is authenticated and is a member of the island.
// Returns the caller's user id on success.
func RequireIslandMember(ctx context.Context, getter MembershipGetter, islandID string) (string, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		return "", ErrUnauthenticated
	}
	if islandID == "" {
		return "", ErrForbidden
	}
	m, err := getter.GetByUserAndIsland(ctx, userID, islandID)
	if err != nil {
		return "", fmt.Errorf("resolve membership: %w", err)
	}
	if m == nil {
		return "", ErrForbidden
	}
	return userID, nil
}
