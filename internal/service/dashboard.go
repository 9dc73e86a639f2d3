package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/murmur-app/murmur/internal/model"
	"github.com/murmur-app/murmur/internal/repository"
)

// Dashboard errors.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyUpdate     = errors.New("no fields to update")
)

// Listing bounds.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Stats windows in days.
const (
	StatsRangeWeek  = 7
	StatsRangeMonth = 30
)

// DashboardStore is the persistence surface the dashboard needs.
// *repository.Repository satisfies it.
type DashboardStore interface {
	ListMessages(ctx context.Context, userID string, filter model.MessageFilter) ([]*model.Message, error)
	CountMessages(ctx context.Context, userID string, filter model.MessageFilter) (int64, error)
	UpdateMessageFlags(ctx context.Context, userID, messageID string, update model.MessageFlagsUpdate) (*model.Message, error)
	DeleteMessage(ctx context.Context, userID, messageID string) error
	CountMessagesByDay(ctx context.Context, userID string, since time.Time) ([]model.DayCount, error)
}

// DashboardService serves the authenticated management surface.
type DashboardService struct {
	store  DashboardStore
	logger *slog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(store DashboardStore, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		store:  store,
		logger: logger.With("component", "service.dashboard"),
		now:    time.Now,
	}
}

// ListMessages returns one page of the user's inbox, newest first.
// Page and limit are clamped rather than rejected.
func (s *DashboardService) ListMessages(ctx context.Context, userID string, filter model.MessageFilter) (*model.MessagePage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultPageLimit
	}
	if filter.Limit > MaxPageLimit {
		filter.Limit = MaxPageLimit
	}

	items, err := s.store.ListMessages(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	total, err := s.store.CountMessages(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	if items == nil {
		items = []*model.Message{}
	}

	return &model.MessagePage{
		Items: items,
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	}, nil
}

// UpdateMessage applies a partial flag update to a user-owned message.
func (s *DashboardService) UpdateMessage(ctx context.Context, userID, messageID string, update model.MessageFlagsUpdate) (*model.Message, error) {
	if update.Empty() {
		return nil, ErrEmptyUpdate
	}

	msg, err := s.store.UpdateMessageFlags(ctx, userID, messageID, update)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("update message: %w", err)
	}

	return msg, nil
}

// DeleteMessage removes a user-owned message.
func (s *DashboardService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	err := s.store.DeleteMessage(ctx, userID, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("delete message: %w", err)
	}

	s.logger.Info("message deleted", "user_id", userID, "message_id", messageID)
	return nil
}

// Stats returns the per-day message counts over the window, zero-filled so
// every day in the range has a label and a value. Days are UTC.
func (s *DashboardService) Stats(ctx context.Context, userID string, rangeDays int) (*model.Stats, error) {
	if rangeDays != StatsRangeWeek && rangeDays != StatsRangeMonth {
		rangeDays = StatsRangeWeek
	}

	now := s.now().UTC()
	since := now.AddDate(0, 0, -(rangeDays - 1)).Truncate(24 * time.Hour)

	counts, err := s.store.CountMessagesByDay(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("count messages by day: %w", err)
	}

	byDay := make(map[string]int64, len(counts))
	for _, dc := range counts {
		byDay[dc.Day.UTC().Format("2006-01-02")] = dc.Count
	}

	stats := &model.Stats{
		Labels: make([]string, 0, rangeDays),
		Series: make([]int64, 0, rangeDays),
	}
	for i := rangeDays - 1; i >= 0; i-- {
		label := now.AddDate(0, 0, -i).Format("2006-01-02")
		stats.Labels = append(stats.Labels, label)
		stats.Series = append(stats.Series, byDay[label])
	}

	return stats, nil
}
