package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/murmur-app/murmur/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// CreateUser inserts a new user with its credential material.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, username, bio, avatar_url, cover_url, theme, token_hash, token_prefix, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Bio,
		user.AvatarURL,
		user.CoverURL,
		user.Theme,
		user.TokenHash,
		user.TokenPrefix,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves a user by handle.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT id, username, bio, avatar_url, cover_url, theme, token_hash, token_prefix, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// GetUsersByTokenPrefix retrieves all users whose token prefix matches.
// Used during authentication to find candidate accounts for the expensive
// hash verification; the prefix is collision-tolerant, so callers must
// verify each candidate.
func (r *Repository) GetUsersByTokenPrefix(ctx context.Context, prefix string) ([]*model.User, error) {
	query := `
		SELECT id, username, bio, avatar_url, cover_url, theme, token_hash, token_prefix, created_at, updated_at
		FROM users
		WHERE token_prefix = $1
	`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by token prefix: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Bio,
		&user.AvatarURL,
		&user.CoverURL,
		&user.Theme,
		&user.TokenHash,
		&user.TokenPrefix,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
