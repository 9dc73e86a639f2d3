package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/murmur-app/murmur/internal/model"
)

// ErrNoVAPIDKeyPair indicates no pair has been persisted yet.
var ErrNoVAPIDKeyPair = errors.New("no VAPID key pair persisted")

// LoadVAPIDKeyPair returns the persisted key pair, oldest first so every
// process resolves the same pair even if a historical duplicate exists.
func (r *Repository) LoadVAPIDKeyPair(ctx context.Context) (*model.VAPIDKeyPair, error) {
	query := `
		SELECT public_key, private_key, created_at
		FROM vapid_keys
		ORDER BY created_at
		LIMIT 1
	`

	var pair model.VAPIDKeyPair
	err := r.pool.QueryRow(ctx, query).Scan(&pair.PublicKey, &pair.PrivateKey, &pair.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNoVAPIDKeyPair
		}
		return nil, fmt.Errorf("failed to load VAPID key pair: %w", err)
	}

	return &pair, nil
}

// SaveVAPIDKeyPair persists a freshly generated key pair.
func (r *Repository) SaveVAPIDKeyPair(ctx context.Context, pair *model.VAPIDKeyPair) error {
	query := `
		INSERT INTO vapid_keys (public_key, private_key, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.pool.Exec(ctx, query, pair.PublicKey, pair.PrivateKey, pair.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save VAPID key pair: %w", err)
	}

	return nil
}
