package repository

import (
	"context"
	"database/sql"
	"errors"

	"archipelago/backend/internal/island/domain"
)

// ErrVersionConflict is returned by UpdateCAS when the island changed since it was read.
var ErrVersionConflict = errors.New("island was modified concurrently")

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an island repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const islandColumns = `id, name, description, status, author_id, owner_id,
	logo_filename, banner_filename, banner_color, version, created_at`

// CreateWithOwner persists the island row and the owner's membership row in a
// single transaction. Both commit together or neither does.
func (r *PostgresRepository) CreateWithOwner(ctx context.Context, i *domain.Island) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO islands (`+islandColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		i.ID, i.Name, nullable(i.Description), nullable(i.Status), i.AuthorID, i.OwnerID,
		nullable(i.LogoFilename), nullable(i.BannerFilename), nullable(i.BannerColor),
		i.Version, i.CreatedAt,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO island_members (user_id, island_id, created_at) VALUES ($1, $2, $3)`,
		i.OwnerID, i.ID, i.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID returns the island for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Island, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+islandColumns+` FROM islands WHERE id = $1`, id)
	i, err := scanIsland(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return i, nil
}

// ListByMember returns the islands the given user belongs to.
func (r *PostgresRepository) ListByMember(ctx context.Context, userID string) ([]*domain.Island, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.name, i.description, i.status, i.author_id, i.owner_id,
			i.logo_filename, i.banner_filename, i.banner_color, i.version, i.created_at
		FROM islands i
		JOIN island_members m ON m.island_id = i.id
		WHERE m.user_id = $1
		ORDER BY i.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Island
	for rows.Next() {
		i, err := scanIsland(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// UpdateCAS writes the mutable metadata guarded by the version the caller read.
// Returns the updated island, ErrVersionConflict if the version moved, or nil
// if the island does not exist.
func (r *PostgresRepository) UpdateCAS(ctx context.Context, i *domain.Island) (*domain.Island, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE islands
		SET name = $3, description = $4, status = $5, banner_color = $6, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING `+islandColumns,
		i.ID, i.Version, i.Name, nullable(i.Description), nullable(i.Status), nullable(i.BannerColor))
	updated, err := scanIsland(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	// No row matched: either the island is gone or the version moved.
	existing, err := r.GetByID(ctx, i.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	return nil, ErrVersionConflict
}

// SetLogo records the stored logo file name; empty filename clears it.
func (r *PostgresRepository) SetLogo(ctx context.Context, id, filename string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE islands SET logo_filename = $2 WHERE id = $1`, id, nullable(filename))
	return err
}

// SetBanner records the stored banner file name; empty filename clears it.
func (r *PostgresRepository) SetBanner(ctx context.Context, id, filename string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE islands SET banner_filename = $2 WHERE id = $1`, id, nullable(filename))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIsland(row rowScanner) (*domain.Island, error) {
	var i domain.Island
	var desc, status, logo, banner, color sql.NullString
	err := row.Scan(
		&i.ID, &i.Name, &desc, &status, &i.AuthorID, &i.OwnerID,
		&logo, &banner, &color, &i.Version, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	i.Description = desc.String
	i.Status = status.String
	i.LogoFilename = logo.String
	i.BannerFilename = banner.String
	i.BannerColor = color.String
	return &i, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
