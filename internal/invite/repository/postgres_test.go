package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"archipelago/backend/internal/invite/domain"
)

const inviteCols = "content, island_id, author_id, effective_from, effective_to, usages_max, usages_count"

func inviteRow(content string, effectiveTo any, usagesMax any, usagesCount int32, from time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"content", "island_id", "author_id", "effective_from", "effective_to", "usages_max", "usages_count"}).
		AddRow(content, "island-1", "owner-1", from, effectiveTo, usagesMax, usagesCount)
}

func TestGetByContent_MissingRowIsNil(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery("SELECT " + inviteCols + " FROM island_invites WHERE content").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"content"}))

	repo := NewPostgresRepository(conn)
	link, err := repo.GetByContent(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetByContent: %v", err)
	}
	if link != nil {
		t.Errorf("link = %+v, want nil for missing row", link)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListActive_FiltersInSQL(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM island_invites\s+WHERE island_id = \$1\s+AND \(effective_to IS NULL OR effective_to >= \$2\)\s+AND \(usages_max IS NULL OR usages_count < usages_max\)`).
		WithArgs("island-1", now).
		WillReturnRows(inviteRow("abc", nil, nil, 0, now.Add(-time.Hour)))

	repo := NewPostgresRepository(conn)
	links, err := repo.ListActive(context.Background(), "island-1", now)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(links) != 1 || links[0].Content != "abc" {
		t.Fatalf("links = %+v, want single link abc", links)
	}
	if links[0].EffectiveTo != nil || links[0].UsagesMax != nil {
		t.Error("nullable bounds not mapped to nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete_MissingRowIsNotFound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("DELETE FROM island_invites WHERE content").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepository(conn)
	if err := repo.Delete(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRedeem_HappyPath(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT " + inviteCols + " FROM island_invites WHERE content = \\$1 FOR UPDATE").
		WithArgs("abc").
		WillReturnRows(inviteRow("abc", nil, int32(5), 2, now.Add(-time.Hour)))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", "island-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO island_members").
		WithArgs("user-1", "island-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE island_invites SET usages_count = usages_count \\+ 1").
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(conn)
	m, err := repo.Redeem(context.Background(), "abc", "user-1", now)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if m.UserID != "user-1" || m.IslandID != "island-1" {
		t.Errorf("membership = %s/%s, want user-1/island-1", m.UserID, m.IslandID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRedeem_MissingLink(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"content"}))
	mock.ExpectRollback()

	repo := NewPostgresRepository(conn)
	if _, err := repo.Redeem(context.Background(), "ghost", "user-1", time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRedeem_CapReachedUnderLock(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("abc").
		WillReturnRows(inviteRow("abc", nil, int32(3), 3, now.Add(-time.Hour)))
	mock.ExpectRollback()

	repo := NewPostgresRepository(conn)
	if _, err := repo.Redeem(context.Background(), "abc", "user-1", now); !errors.Is(err, domain.ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted when count has reached the cap", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRedeem_TimeExpiredUnderLock(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("abc").
		WillReturnRows(inviteRow("abc", now.Add(-time.Minute), nil, 0, now.Add(-time.Hour)))
	mock.ExpectRollback()

	repo := NewPostgresRepository(conn)
	if _, err := repo.Redeem(context.Background(), "abc", "user-1", now); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRedeem_ExistingMembership(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("abc").
		WillReturnRows(inviteRow("abc", nil, nil, 0, now.Add(-time.Hour)))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", "island-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	repo := NewPostgresRepository(conn)
	if _, err := repo.Redeem(context.Background(), "abc", "user-1", now); !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("err = %v, want ErrAlreadyMember", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRedeem_SerializationFailureIsConflict(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("abc").
		WillReturnRows(inviteRow("abc", nil, nil, 0, now.Add(-time.Hour)))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", "island-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO island_members").
		WithArgs("user-1", "island-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE island_invites SET usages_count = usages_count \\+ 1").
		WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()

	repo := NewPostgresRepository(conn)
	if _, err := repo.Redeem(context.Background(), "abc", "user-1", now); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict on serialization failure", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
