package repository

import (
	"context"
	"time"

	"archipelago/backend/internal/invite/domain"
	membershipdomain "archipelago/backend/internal/membership/domain"
)

// Repository defines persistence and redemption for invite links.
type Repository interface {
	Create(ctx context.Context, l *domain.InviteLink) error
	GetByContent(ctx context.Context, content string) (*domain.InviteLink, error)
	// ListActive returns the island's links whose time bound and usage bound are
	// both uncrossed at the given instant.
	ListActive(ctx context.Context, islandID string, now time.Time) ([]*domain.InviteLink, error)
	Delete(ctx context.Context, content string) error
	// Redeem consumes one usage of the link for the given user and creates the
	// membership, atomically. Returns domain.ErrNotFound, domain.ErrExpired,
	// domain.ErrExhausted, domain.ErrAlreadyMember, or domain.ErrConflict on
	// the respective failures.
	Redeem(ctx context.Context, content, userID string, now time.Time) (*membershipdomain.Membership, error)
}
