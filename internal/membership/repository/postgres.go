package repository

import (
	"context"
	"database/sql"
	"errors"

	"archipelago/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserAndIsland returns the membership for the given user and island, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserAndIsland(ctx context.Context, userID, islandID string) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, island_id, created_at FROM island_members
		WHERE user_id = $1 AND island_id = $2`, userID, islandID).
		Scan(&m.UserID, &m.IslandID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListByIsland returns all memberships for the given island.
func (r *PostgresRepository) ListByIsland(ctx context.Context, islandID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, island_id, created_at FROM island_members
		WHERE island_id = $1 ORDER BY created_at`, islandID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.UserID, &m.IslandID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// DeleteByUserAndIsland removes the membership; deleting a missing row is a no-op.
func (r *PostgresRepository) DeleteByUserAndIsland(ctx context.Context, userID, islandID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM island_members WHERE user_id = $1 AND island_id = $2`, userID, islandID)
	return err
}
