package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"archipelago/backend/internal/island/domain"
	islandrepo "archipelago/backend/internal/island/repository"
	membershipdomain "archipelago/backend/internal/membership/domain"
)

// fakeIslandRepo is an in-memory island repository with version CAS.
type fakeIslandRepo struct {
	islands map[string]*domain.Island
	members *fakeMembershipRepo
}

func (f *fakeIslandRepo) CreateWithOwner(ctx context.Context, i *domain.Island) error {
	cp := *i
	f.islands[i.ID] = &cp
	f.members.rows[i.OwnerID+":"+i.ID] = &membershipdomain.Membership{
		UserID: i.OwnerID, IslandID: i.ID, CreatedAt: i.CreatedAt,
	}
	return nil
}

func (f *fakeIslandRepo) GetByID(ctx context.Context, id string) (*domain.Island, error) {
	if i, ok := f.islands[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeIslandRepo) ListByMember(ctx context.Context, userID string) ([]*domain.Island, error) {
	var out []*domain.Island
	for _, m := range f.members.rows {
		if m.UserID == userID {
			if i, ok := f.islands[m.IslandID]; ok {
				cp := *i
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeIslandRepo) UpdateCAS(ctx context.Context, i *domain.Island) (*domain.Island, error) {
	stored, ok := f.islands[i.ID]
	if !ok {
		return nil, nil
	}
	if stored.Version != i.Version {
		return nil, islandrepo.ErrVersionConflict
	}
	cp := *i
	cp.Version++
	f.islands[i.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeIslandRepo) SetLogo(ctx context.Context, id, filename string) error {
	if i, ok := f.islands[id]; ok {
		i.LogoFilename = filename
	}
	return nil
}

func (f *fakeIslandRepo) SetBanner(ctx context.Context, id, filename string) error {
	if i, ok := f.islands[id]; ok {
		i.BannerFilename = filename
	}
	return nil
}

// fakeMembershipRepo is an in-memory membership repository.
type fakeMembershipRepo struct {
	rows map[string]*membershipdomain.Membership
}

func (f *fakeMembershipRepo) GetByUserAndIsland(ctx context.Context, userID, islandID string) (*membershipdomain.Membership, error) {
	return f.rows[userID+":"+islandID], nil
}

func (f *fakeMembershipRepo) ListByIsland(ctx context.Context, islandID string) ([]*membershipdomain.Membership, error) {
	var out []*membershipdomain.Membership
	for _, m := range f.rows {
		if m.IslandID == islandID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) Create(ctx context.Context, m *membershipdomain.Membership) error {
	f.rows[m.UserID+":"+m.IslandID] = m
	return nil
}

func (f *fakeMembershipRepo) DeleteByUserAndIsland(ctx context.Context, userID, islandID string) error {
	delete(f.rows, userID+":"+islandID)
	return nil
}

func newTestService() (*Service, *fakeIslandRepo, *fakeMembershipRepo) {
	members := &fakeMembershipRepo{rows: make(map[string]*membershipdomain.Membership)}
	islands := &fakeIslandRepo{islands: make(map[string]*domain.Island), members: members}
	return NewService(islands, members), islands, members
}

func TestCreate_OwnerAutoJoins(t *testing.T) {
	svc, _, members := newTestService()

	island, err := svc.Create(context.Background(), "owner-1", "  Mist Island  ", " foggy ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if island.Name != "Mist Island" {
		t.Errorf("name = %q, want trimmed", island.Name)
	}
	if island.OwnerID != "owner-1" || island.AuthorID != "owner-1" {
		t.Errorf("owner/author = %s/%s, want owner-1/owner-1", island.OwnerID, island.AuthorID)
	}
	if island.Version != 1 {
		t.Errorf("version = %d, want 1", island.Version)
	}
	if members.rows["owner-1:"+island.ID] == nil {
		t.Error("owner membership not created with island")
	}
}

func TestCreate_NameRequired(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Create(context.Background(), "owner-1", "   ", ""); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("err = %v, want ErrNameRequired", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Get(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListMine(t *testing.T) {
	svc, _, _ := newTestService()

	a, _ := svc.Create(context.Background(), "owner-1", "A", "")
	if _, err := svc.Create(context.Background(), "owner-2", "B", ""); err != nil {
		t.Fatalf("Create B: %v", err)
	}

	mine, err := svc.ListMine(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("ListMine = %d islands, want only the owned one", len(mine))
	}
}

func TestEdit_BumpsVersion(t *testing.T) {
	svc, _, _ := newTestService()
	island, _ := svc.Create(context.Background(), "owner-1", "Old Name", "")

	updated, err := svc.Edit(context.Background(), island.ID, "owner-1", EditParams{
		Name:    "New Name",
		Version: island.Version,
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("name = %q, want New Name", updated.Name)
	}
	if updated.Version != island.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, island.Version+1)
	}
}

func TestEdit_StaleVersionConflicts(t *testing.T) {
	svc, _, _ := newTestService()
	island, _ := svc.Create(context.Background(), "owner-1", "Name", "")

	if _, err := svc.Edit(context.Background(), island.ID, "owner-1", EditParams{Name: "First", Version: island.Version}); err != nil {
		t.Fatalf("first Edit: %v", err)
	}
	_, err := svc.Edit(context.Background(), island.ID, "owner-1", EditParams{Name: "Second", Version: island.Version})
	if !errors.Is(err, islandrepo.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}
}

func TestEdit_OwnerOnly(t *testing.T) {
	svc, _, _ := newTestService()
	island, _ := svc.Create(context.Background(), "owner-1", "Name", "")

	_, err := svc.Edit(context.Background(), island.ID, "member-1", EditParams{Name: "Hijack", Version: island.Version})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestLeave(t *testing.T) {
	svc, _, members := newTestService()
	island, _ := svc.Create(context.Background(), "owner-1", "Name", "")
	members.rows["user-1:"+island.ID] = &membershipdomain.Membership{
		UserID: "user-1", IslandID: island.ID, CreatedAt: time.Now(),
	}

	if err := svc.Leave(context.Background(), island.ID, "user-1"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if members.rows["user-1:"+island.ID] != nil {
		t.Error("membership not removed")
	}
}

func TestLeave_OwnerCannot(t *testing.T) {
	svc, _, _ := newTestService()
	island, _ := svc.Create(context.Background(), "owner-1", "Name", "")

	if err := svc.Leave(context.Background(), island.ID, "owner-1"); !errors.Is(err, ErrOwnerMustRemain) {
		t.Fatalf("err = %v, want ErrOwnerMustRemain", err)
	}
}

func TestLeave_NotMember(t *testing.T) {
	svc, _, _ := newTestService()
	island, _ := svc.Create(context.Background(), "owner-1", "Name", "")

	if err := svc.Leave(context.Background(), island.ID, "stranger"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("err = %v, want ErrNotMember", err)
	}
}

func TestRemoveMember(t *testing.T) {
	svc, _, members := newTestService()
	island, _ := svc.Create(context.Background(), "owner-1", "Name", "")
	members.rows["user-1:"+island.ID] = &membershipdomain.Membership{
		UserID: "user-1", IslandID: island.ID, CreatedAt: time.Now(),
	}

	if err := svc.RemoveMember(context.Background(), island.ID, "owner-1", "user-1"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if members.rows["user-1:"+island.ID] != nil {
		t.Error("membership not removed")
	}
}

func TestRemoveMember_OwnerOnly(t *testing.T) {
	svc, _, members := newTestService()
	island, _ := svc.Create(context.Background(), "owner-1", "Name", "")
	members.rows["user-1:"+island.ID] = &membershipdomain.Membership{UserID: "user-1", IslandID: island.ID}

	if err := svc.RemoveMember(context.Background(), island.ID, "user-1", "user-1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestRemoveMember_CannotRemoveOwner(t *testing.T) {
	svc, _, _ := newTestService()
	island, _ := svc.Create(context.Background(), "owner-1", "Name", "")

	if err := svc.RemoveMember(context.Background(), island.ID, "owner-1", "owner-1"); !errors.Is(err, ErrOwnerMustRemain) {
		t.Fatalf("err = %v, want ErrOwnerMustRemain", err)
	}
}
