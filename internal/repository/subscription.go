package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/murmur-app/murmur/internal/model"
)

// ErrSubscriptionNotFound indicates no matching push registration.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// UpsertSubscription registers a push endpoint for a user.
// Re-registration of the same endpoint refreshes the key material; an
// endpoint currently held by a different user is reassigned to the caller,
// since a push endpoint only ever delivers to one device.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	// Reassignment path: the endpoint may exist under another user.
	query := `
		INSERT INTO subscriptions (id, user_id, endpoint, p256dh, auth, user_agent, last_seen_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    p256dh = EXCLUDED.p256dh,
		    auth = EXCLUDED.auth,
		    user_agent = EXCLUDED.user_agent,
		    last_seen_at = EXCLUDED.last_seen_at
	`

	_, err := r.pool.Exec(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Endpoint,
		sub.P256dh,
		sub.Auth,
		sub.UserAgent,
		sub.LastSeenAt,
		sub.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// DeleteSubscription removes a user's registration of an endpoint.
// Idempotent: deleting a registration that does not exist is not an error.
func (r *Repository) DeleteSubscription(ctx context.Context, userID, endpoint string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM subscriptions WHERE user_id = $1 AND endpoint = $2", userID, endpoint)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// DeleteSubscriptionByID removes a registration by its ID.
// Used by the push dispatcher when the transport reports the endpoint gone.
func (r *Repository) DeleteSubscriptionByID(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM subscriptions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription by id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// ListSubscriptionsByUserID retrieves all push registrations for a user.
func (r *Repository) ListSubscriptionsByUserID(ctx context.Context, userID string) ([]*model.Subscription, error) {
	query := `
		SELECT id, user_id, endpoint, p256dh, auth, user_agent, last_seen_at, created_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*model.Subscription
	for rows.Next() {
		var sub model.Subscription
		err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.Endpoint,
			&sub.P256dh,
			&sub.Auth,
			&sub.UserAgent,
			&sub.LastSeenAt,
			&sub.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, &sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}

// TouchSubscription records that an endpoint accepted a delivery.
func (r *Repository) TouchSubscription(ctx context.Context, id string, seenAt time.Time) error {
	_, err := r.pool.Exec(ctx, "UPDATE subscriptions SET last_seen_at = $2 WHERE id = $1", id, seenAt)
	if err != nil {
		return fmt.Errorf("failed to touch subscription: %w", err)
	}
	return nil
}
