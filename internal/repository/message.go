package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/murmur-app/murmur/internal/model"
)

// ErrMessageNotFound indicates the message does not exist or belongs to
// another user. The two cases are deliberately not distinguished.
var ErrMessageNotFound = errors.New("message not found")

// CreateMessage inserts a new anonymous message.
func (r *Repository) CreateMessage(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (id, user_id, content, is_read, is_archived, is_favorite, created_at, expires_at, source_ip_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		msg.UserID,
		msg.Content,
		msg.IsRead,
		msg.IsArchived,
		msg.IsFavorite,
		msg.CreatedAt,
		msg.ExpiresAt,
		msg.SourceIPHash,
	)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// ListMessages returns one page of a user's messages, newest first,
// restricted to rows still inside their TTL.
func (r *Repository) ListMessages(ctx context.Context, userID string, filter model.MessageFilter) ([]*model.Message, error) {
	where, args := messageFilterClause(userID, filter)

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`
		SELECT id, user_id, content, is_read, is_archived, is_favorite, created_at, expires_at, source_ip_hash
		FROM messages
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// CountMessages returns the total matching a filter, ignoring pagination.
func (r *Repository) CountMessages(ctx context.Context, userID string, filter model.MessageFilter) (int64, error) {
	where, args := messageFilterClause(userID, filter)

	var total int64
	query := "SELECT COUNT(*) FROM messages " + where
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return total, nil
}

// UpdateMessageFlags applies a partial flag update to a user-owned message.
func (r *Repository) UpdateMessageFlags(ctx context.Context, userID, messageID string, update model.MessageFlagsUpdate) (*model.Message, error) {
	sets := make([]string, 0, 3)
	args := []any{messageID, userID}

	appendSet := func(column string, value *bool) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendSet("is_read", update.IsRead)
	appendSet("is_archived", update.IsArchived)
	appendSet("is_favorite", update.IsFavorite)

	if len(sets) == 0 {
		// Nothing to change; still verify ownership.
		return r.getMessage(ctx, userID, messageID)
	}

	query := fmt.Sprintf(`
		UPDATE messages
		SET %s
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, content, is_read, is_archived, is_favorite, created_at, expires_at, source_ip_hash
	`, strings.Join(sets, ", "))

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to update message flags: %w", err)
	}

	return msg, nil
}

// DeleteMessage removes a user-owned message.
func (r *Repository) DeleteMessage(ctx context.Context, userID, messageID string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM messages WHERE id = $1 AND user_id = $2", messageID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// CountMessagesByDay groups a user's messages per UTC day since the given
// instant. Days without messages are absent; callers zero-fill.
func (r *Repository) CountMessagesByDay(ctx context.Context, userID string, since time.Time) ([]model.DayCount, error) {
	query := `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, COUNT(*)
		FROM messages
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY day
		ORDER BY day
	`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages by day: %w", err)
	}
	defer rows.Close()

	var counts []model.DayCount
	for rows.Next() {
		var dc model.DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		counts = append(counts, dc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating day counts: %w", err)
	}

	return counts, nil
}

// DeleteExpiredMessages removes all messages past their TTL.
// Returns the number of rows reclaimed.
func (r *Repository) DeleteExpiredMessages(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM messages WHERE expires_at <= $1", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) getMessage(ctx context.Context, userID, messageID string) (*model.Message, error) {
	query := `
		SELECT id, user_id, content, is_read, is_archived, is_favorite, created_at, expires_at, source_ip_hash
		FROM messages
		WHERE id = $1 AND user_id = $2
	`

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, messageID, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// messageFilterClause builds the WHERE clause shared by list and count.
func messageFilterClause(userID string, filter model.MessageFilter) (string, []any) {
	clauses := []string{"user_id = $1", "expires_at > now()"}
	args := []any{userID}

	appendFlag := func(column string, value *bool) {
		if value == nil {
			return
		}
		args = append(args, *value)
		clauses = append(clauses, column+" = $"+strconv.Itoa(len(args)))
	}
	appendFlag("is_read", filter.IsRead)
	appendFlag("is_archived", filter.IsArchived)
	appendFlag("is_favorite", filter.IsFavorite)

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var msg model.Message
	err := row.Scan(
		&msg.ID,
		&msg.UserID,
		&msg.Content,
		&msg.IsRead,
		&msg.IsArchived,
		&msg.IsFavorite,
		&msg.CreatedAt,
		&msg.ExpiresAt,
		&msg.SourceIPHash,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
