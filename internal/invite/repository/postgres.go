package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"archipelago/backend/internal/db"
	"archipelago/backend/internal/invite/domain"
	membershipdomain "archipelago/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an invite repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const inviteColumns = `content, island_id, author_id, effective_from, effective_to, usages_max, usages_count`

// Create persists the link. A content-key collision surfaces as the store's
// unique-violation error; the caller retries with a fresh key.
func (r *PostgresRepository) Create(ctx context.Context, l *domain.InviteLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO island_invites (`+inviteColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		l.Content, l.IslandID, l.AuthorID, l.EffectiveFrom, l.EffectiveTo, l.UsagesMax, l.UsagesCount)
	return err
}

// GetByContent returns the link for the ticket key, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByContent(ctx context.Context, content string) (*domain.InviteLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM island_invites WHERE content = $1`, content)
	l, err := scanInvite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// ListActive returns the island's unexpired links. The expiry predicate runs in
// SQL against the supplied clock so no background sweeper is needed.
func (r *PostgresRepository) ListActive(ctx context.Context, islandID string, now time.Time) ([]*domain.InviteLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+inviteColumns+` FROM island_invites
		WHERE island_id = $1
		  AND (effective_to IS NULL OR effective_to >= $2)
		  AND (usages_max IS NULL OR usages_count < usages_max)
		ORDER BY effective_from`, islandID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.InviteLink
	for rows.Next() {
		l, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Delete hard-deletes the link; deleting a missing link returns domain.ErrNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, content string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM island_invites WHERE content = $1`, content)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Redeem consumes one usage of the link and inserts the membership row as one
// atomic unit. The invite row is locked for the duration of the transaction, so
// concurrent redeemers of the same ticket serialize here: each one re-reads the
// usage count under the lock, and the cap can never be overshot.
func (r *PostgresRepository) Redeem(ctx context.Context, content, userID string, now time.Time) (*membershipdomain.Membership, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM island_invites WHERE content = $1 FOR UPDATE`, content)
	link, err := scanInvite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapTxError(err)
	}

	if link.TimeExpired(now) {
		return nil, domain.ErrExpired
	}
	if link.Exhausted() {
		return nil, domain.ErrExhausted
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM island_members WHERE user_id = $1 AND island_id = $2
		)`, userID, link.IslandID).Scan(&exists)
	if err != nil {
		return nil, mapTxError(err)
	}
	if exists {
		return nil, domain.ErrAlreadyMember
	}

	m := &membershipdomain.Membership{
		UserID:    userID,
		IslandID:  link.IslandID,
		CreatedAt: now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO island_members (user_id, island_id, created_at) VALUES ($1, $2, $3)`,
		m.UserID, m.IslandID, m.CreatedAt,
	); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrAlreadyMember
		}
		return nil, mapTxError(err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE island_invites SET usages_count = usages_count + 1 WHERE content = $1`,
		content,
	); err != nil {
		return nil, mapTxError(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return m, nil
}

func mapTxError(err error) error {
	if db.IsSerializationFailure(err) {
		return domain.ErrConflict
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (*domain.InviteLink, error) {
	var l domain.InviteLink
	var effectiveTo sql.NullTime
	var usagesMax sql.NullInt32
	err := row.Scan(&l.Content, &l.IslandID, &l.AuthorID, &l.EffectiveFrom,
		&effectiveTo, &usagesMax, &l.UsagesCount)
	if err != nil {
		return nil, err
	}
	if effectiveTo.Valid {
		t := effectiveTo.Time
		l.EffectiveTo = &t
	}
	if usagesMax.Valid {
		v := usagesMax.Int32
		l.UsagesMax = &v
	}
	return &l, nil
}
