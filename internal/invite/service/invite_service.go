package service

import (
	"context"
	"errors"
	"time"

	"archipelago/backend/internal/db"
	islanddomain "archipelago/backend/internal/island/domain"
	"archipelago/backend/internal/invite/domain"
	inviterepo "archipelago/backend/internal/invite/repository"
	membershipdomain "archipelago/backend/internal/membership/domain"
)

// Sentinel errors for the invite service; handlers map them to HTTP statuses.
var (
	ErrIslandNotFound = errors.New("island not found")
	ErrNotOwner       = errors.New("only the island owner may manage invites")
)

// IslandRepo is the minimal island repository needed by the invite service.
type IslandRepo interface {
	GetByID(ctx context.Context, id string) (*islanddomain.Island, error)
}

// Service creates, lists, deletes, and redeems invite links. Owner-only
// operations are authorized here, against the island's current owner; the
// ledger itself stays policy-free.
type Service struct {
	invites inviterepo.Repository
	islands IslandRepo
	now     func() time.Time
}

// NewService returns a Service with the given dependencies.
func NewService(invites inviterepo.Repository, islands IslandRepo) *Service {
	return &Service{
		invites: invites,
		islands: islands,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateParams bounds a new link. Nil duration components leave the link
// without a time bound; nil MaxUsages leaves it uncapped.
type CreateParams struct {
	Days      *int
	Hours     *int
	Minutes   *int
	MaxUsages *int32
}

func (p CreateParams) effectiveTo(from time.Time) *time.Time {
	if p.Days == nil && p.Hours == nil && p.Minutes == nil {
		return nil
	}
	to := from
	if p.Days != nil {
		to = to.AddDate(0, 0, *p.Days)
	}
	if p.Hours != nil {
		to = to.Add(time.Duration(*p.Hours) * time.Hour)
	}
	if p.Minutes != nil {
		to = to.Add(time.Duration(*p.Minutes) * time.Minute)
	}
	return &to
}

// Create mints a new link for the island. Only the island's current owner may
// create links; the author recorded on the link is the requester.
func (s *Service) Create(ctx context.Context, islandID, requesterID string, params CreateParams) (*domain.InviteLink, error) {
	if err := s.requireOwner(ctx, islandID, requesterID); err != nil {
		return nil, err
	}
	now := s.now()
	// A content key collision is vanishingly rare but possible; retry with a
	// fresh key instead of surfacing the unique violation.
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		key, err := domain.NewContentKey()
		if err != nil {
			return nil, err
		}
		link := &domain.InviteLink{
			Content:       key,
			IslandID:      islandID,
			AuthorID:      requesterID,
			EffectiveFrom: now,
			EffectiveTo:   params.effectiveTo(now),
			UsagesMax:     params.MaxUsages,
		}
		err = s.invites.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if !db.IsUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// ListActive returns the island's unexpired links. Owner-only.
func (s *Service) ListActive(ctx context.Context, islandID, requesterID string) ([]*domain.InviteLink, error) {
	if err := s.requireOwner(ctx, islandID, requesterID); err != nil {
		return nil, err
	}
	return s.invites.ListActive(ctx, islandID, s.now())
}

// Delete hard-deletes the link. Owner-only; a link belonging to a different
// island than the one named is treated as not found.
func (s *Service) Delete(ctx context.Context, islandID, content, requesterID string) error {
	if err := s.requireOwner(ctx, islandID, requesterID); err != nil {
		return err
	}
	link, err := s.invites.GetByContent(ctx, content)
	if err != nil {
		return err
	}
	if link == nil || link.IslandID != islandID {
		return domain.ErrNotFound
	}
	return s.invites.Delete(ctx, content)
}

// Redeem consumes the ticket for the requesting user and returns the new
// membership. Any authenticated user may redeem; the ledger enforces expiry,
// the usage cap, and the one-membership-per-pair guarantee atomically.
func (s *Service) Redeem(ctx context.Context, content, userID string) (*membershipdomain.Membership, error) {
	return s.invites.Redeem(ctx, content, userID, s.now())
}

func (s *Service) requireOwner(ctx context.Context, islandID, requesterID string) error {
	island, err := s.islands.GetByID(ctx, islandID)
	if err != nil {
		return err
	}
	if island == nil {
		return ErrIslandNotFound
	}
	if island.OwnerID != requesterID {
		return ErrNotOwner
	}
	return nil
}
