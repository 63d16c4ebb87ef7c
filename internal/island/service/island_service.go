package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"archipelago/backend/internal/island/domain"
	islandrepo "archipelago/backend/internal/island/repository"
	membershipdomain "archipelago/backend/internal/membership/domain"
	membershiprepo "archipelago/backend/internal/membership/repository"
)

// Sentinel errors for the island service; handlers map them to HTTP statuses.
var (
	ErrNotFound        = errors.New("island not found")
	ErrNotOwner        = errors.New("only the island owner may do this")
	ErrNotMember       = errors.New("user is not a member of the island")
	ErrOwnerMustRemain = errors.New("the owner cannot leave their own island")
	ErrNameRequired    = errors.New("island name is required")
)

// Service manages island lifecycle and membership edges.
type Service struct {
	islands     islandrepo.Repository
	memberships membershiprepo.Repository
}

// NewService returns a Service with the given dependencies.
func NewService(islands islandrepo.Repository, memberships membershiprepo.Repository) *Service {
	return &Service{islands: islands, memberships: memberships}
}

// Create persists a new island owned and authored by ownerID, auto-joining the
// owner. Island row and owner membership commit as one transaction.
func (s *Service) Create(ctx context.Context, ownerID, name, description string) (*domain.Island, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	island := &domain.Island{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		AuthorID:    ownerID,
		OwnerID:     ownerID,
		Version:     1,
		CreatedAt:   time.Now().UTC(),
	}
	if err := island.Validate(); err != nil {
		return nil, err
	}
	if err := s.islands.CreateWithOwner(ctx, island); err != nil {
		return nil, err
	}
	return island, nil
}

// Get returns the island, or ErrNotFound.
func (s *Service) Get(ctx context.Context, islandID string) (*domain.Island, error) {
	island, err := s.islands.GetByID(ctx, islandID)
	if err != nil {
		return nil, err
	}
	if island == nil {
		return nil, ErrNotFound
	}
	return island, nil
}

// ListMine returns the islands the user belongs to.
func (s *Service) ListMine(ctx context.Context, userID string) ([]*domain.Island, error) {
	return s.islands.ListByMember(ctx, userID)
}

// Members returns the island's membership roster.
func (s *Service) Members(ctx context.Context, islandID string) ([]*membershipdomain.Membership, error) {
	if _, err := s.Get(ctx, islandID); err != nil {
		return nil, err
	}
	return s.memberships.ListByIsland(ctx, islandID)
}

// EditParams carries the mutable metadata plus the version the caller read.
type EditParams struct {
	Name        string
	Description string
	Status      string
	BannerColor string
	Version     int64
}

// Edit updates island metadata with a compare-and-swap on the version the
// caller read; a concurrent edit surfaces islandrepo.ErrVersionConflict.
// Owner-only.
func (s *Service) Edit(ctx context.Context, islandID, requesterID string, params EditParams) (*domain.Island, error) {
	island, err := s.Get(ctx, islandID)
	if err != nil {
		return nil, err
	}
	if island.OwnerID != requesterID {
		return nil, ErrNotOwner
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	island.Name = name
	island.Description = strings.TrimSpace(params.Description)
	island.Status = strings.TrimSpace(params.Status)
	island.BannerColor = strings.TrimSpace(params.BannerColor)
	island.Version = params.Version
	updated, err := s.islands.UpdateCAS(ctx, island)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// Leave removes the user's own membership. The owner cannot leave.
func (s *Service) Leave(ctx context.Context, islandID, userID string) error {
	island, err := s.Get(ctx, islandID)
	if err != nil {
		return err
	}
	if island.OwnerID == userID {
		return ErrOwnerMustRemain
	}
	m, err := s.memberships.GetByUserAndIsland(ctx, userID, islandID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotMember
	}
	return s.memberships.DeleteByUserAndIsland(ctx, userID, islandID)
}

// RemoveMember removes another user's membership. Owner-only; the owner cannot
// remove themselves.
func (s *Service) RemoveMember(ctx context.Context, islandID, requesterID, targetUserID string) error {
	island, err := s.Get(ctx, islandID)
	if err != nil {
		return err
	}
	if island.OwnerID != requesterID {
		return ErrNotOwner
	}
	if targetUserID == island.OwnerID {
		return ErrOwnerMustRemain
	}
	m, err := s.memberships.GetByUserAndIsland(ctx, targetUserID, islandID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotMember
	}
	return s.memberships.DeleteByUserAndIsland(ctx, targetUserID, islandID)
}
