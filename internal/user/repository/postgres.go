package repository

import (
	"context"
	"database/sql"
	"errors"

	"archipelago/backend/internal/db"
	"archipelago/backend/internal/user/domain"
)

// ErrDuplicate is returned when a unique column (username or email) is already taken.
var ErrDuplicate = errors.New("user already exists")

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, email, display_name, tag, password_hash, status,
	avatar_filename, banner_filename, banner_color, created_at, updated_at`

// Create persists the user. The user must have ID and PasswordHash set.
// A username or email collision surfaces as ErrDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		u.ID, u.Username, u.Email, u.DisplayName, u.Tag, u.PasswordHash, u.Status,
		nullable(u.AvatarFilename), nullable(u.BannerFilename), nullable(u.BannerColor),
		u.CreatedAt, u.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getWhere(ctx, `id = $1`, id)
}

// GetByUsername returns the user with the given login name, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getWhere(ctx, `username = $1`, username)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getWhere(ctx, `email = $1`, email)
}

// GetByLogin resolves login as either a username or an email, or nil if neither matches.
func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.getWhere(ctx, `username = $1 OR email = $1`, login)
}

func (r *PostgresRepository) getWhere(ctx context.Context, where string, args ...any) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// RolesOf returns the role names of the user; empty slice when the user has none.
func (r *PostgresRepository) RolesOf(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AddRole grants the role to the user. Granting an already-held role is a no-op.
func (r *PostgresRepository) AddRole(ctx context.Context, userID, role string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING`, userID, role)
	return err
}

// UpdateProfile updates the mutable profile fields and returns the updated user,
// or nil if the user does not exist.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, displayName, tag, bannerColor string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET display_name = $2, tag = $3, banner_color = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, displayName, tag, nullable(bannerColor))
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// SetAvatar records the stored avatar file name; empty filename clears it.
func (r *PostgresRepository) SetAvatar(ctx context.Context, id, filename string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_filename = $2, updated_at = now() WHERE id = $1`,
		id, nullable(filename))
	return err
}

// SetBanner records the stored banner file name; empty filename clears it.
func (r *PostgresRepository) SetBanner(ctx context.Context, id, filename string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET banner_filename = $2, updated_at = now() WHERE id = $1`,
		id, nullable(filename))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var avatar, banner, color sql.NullString
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Tag, &u.PasswordHash, &u.Status,
		&avatar, &banner, &color, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.AvatarFilename = avatar.String
	u.BannerFilename = banner.String
	u.BannerColor = color.String
	return &u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
