package service

import (
	"context"
	"testing"
	"time"

	"github.com/murmur-app/murmur/internal/model"
	"github.com/murmur-app/murmur/internal/repository"
)

// fakeDashboardStore is an in-memory DashboardStore keyed by message ID.
type fakeDashboardStore struct {
	messages map[string]*model.Message
	dayRows  []model.DayCount

	lastFilter model.MessageFilter
}

func newFakeDashboardStore(msgs ...*model.Message) *fakeDashboardStore {
	s := &fakeDashboardStore{messages: make(map[string]*model.Message)}
	for _, m := range msgs {
		s.messages[m.ID] = m
	}
	return s
}

func (s *fakeDashboardStore) ListMessages(_ context.Context, userID string, filter model.MessageFilter) ([]*model.Message, error) {
	s.lastFilter = filter
	var out []*model.Message
	for _, m := range s.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeDashboardStore) CountMessages(_ context.Context, userID string, _ model.MessageFilter) (int64, error) {
	var n int64
	for _, m := range s.messages {
		if m.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *fakeDashboardStore) UpdateMessageFlags(_ context.Context, userID, messageID string, update model.MessageFlagsUpdate) (*model.Message, error) {
	m, ok := s.messages[messageID]
	if !ok || m.UserID != userID {
		return nil, repository.ErrMessageNotFound
	}
	if update.IsRead != nil {
		m.IsRead = *update.IsRead
	}
	if update.IsArchived != nil {
		m.IsArchived = *update.IsArchived
	}
	if update.IsFavorite != nil {
		m.IsFavorite = *update.IsFavorite
	}
	return m, nil
}

func (s *fakeDashboardStore) DeleteMessage(_ context.Context, userID, messageID string) error {
	m, ok := s.messages[messageID]
	if !ok || m.UserID != userID {
		return repository.ErrMessageNotFound
	}
	delete(s.messages, messageID)
	return nil
}

func (s *fakeDashboardStore) CountMessagesByDay(_ context.Context, _ string, _ time.Time) ([]model.DayCount, error) {
	return s.dayRows, nil
}

func TestListMessages_Clamping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"defaults", 0, 0, 1, DefaultPageLimit},
		{"negative page", -3, 10, 1, 10},
		{"limit over cap", 2, 500, 2, MaxPageLimit},
		{"in range untouched", 3, 50, 3, 50},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeDashboardStore()
			svc := NewDashboardService(store, testLogger())

			page, err := svc.ListMessages(context.Background(), "u1", model.MessageFilter{Page: tt.page, Limit: tt.limit})
			if err != nil {
				t.Fatalf("ListMessages() error = %v", err)
			}
			if page.Page != tt.wantPage || page.Limit != tt.wantLimit {
				t.Errorf("page/limit = %d/%d, want %d/%d", page.Page, page.Limit, tt.wantPage, tt.wantLimit)
			}
			if store.lastFilter.Page != tt.wantPage || store.lastFilter.Limit != tt.wantLimit {
				t.Errorf("store saw %d/%d, want clamped %d/%d",
					store.lastFilter.Page, store.lastFilter.Limit, tt.wantPage, tt.wantLimit)
			}
			if page.Items == nil {
				t.Error("Items is nil, want empty slice")
			}
		})
	}
}

func TestUpdateMessage(t *testing.T) {
	t.Parallel()

	boolPtr := func(b bool) *bool { return &b }

	store := newFakeDashboardStore(&model.Message{ID: "m1", UserID: "u1"})
	svc := NewDashboardService(store, testLogger())

	msg, err := svc.UpdateMessage(context.Background(), "u1", "m1", model.MessageFlagsUpdate{IsRead: boolPtr(true)})
	if err != nil {
		t.Fatalf("UpdateMessage() error = %v", err)
	}
	if !msg.IsRead {
		t.Error("IsRead not applied")
	}
	if msg.IsArchived || msg.IsFavorite {
		t.Error("untouched flags changed")
	}

	if _, err := svc.UpdateMessage(context.Background(), "u1", "m1", model.MessageFlagsUpdate{}); err != ErrEmptyUpdate {
		t.Errorf("empty update error = %v, want ErrEmptyUpdate", err)
	}
	if _, err := svc.UpdateMessage(context.Background(), "someone-else", "m1", model.MessageFlagsUpdate{IsRead: boolPtr(true)}); err != ErrMessageNotFound {
		t.Errorf("foreign message error = %v, want ErrMessageNotFound", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	t.Parallel()

	store := newFakeDashboardStore(&model.Message{ID: "m1", UserID: "u1"})
	svc := NewDashboardService(store, testLogger())

	if err := svc.DeleteMessage(context.Background(), "someone-else", "m1"); err != ErrMessageNotFound {
		t.Errorf("foreign delete error = %v, want ErrMessageNotFound", err)
	}
	if err := svc.DeleteMessage(context.Background(), "u1", "m1"); err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}
	if err := svc.DeleteMessage(context.Background(), "u1", "m1"); err != ErrMessageNotFound {
		t.Errorf("second delete error = %v, want ErrMessageNotFound", err)
	}
}

func TestStats_ZeroFilled(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	store := newFakeDashboardStore()
	store.dayRows = []model.DayCount{
		{Day: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), Count: 3},
		{Day: time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC), Count: 1},
	}
	svc := NewDashboardService(store, testLogger())
	svc.now = func() time.Time { return now }

	stats, err := svc.Stats(context.Background(), "u1", StatsRangeWeek)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if len(stats.Labels) != StatsRangeWeek || len(stats.Series) != StatsRangeWeek {
		t.Fatalf("series length = %d/%d, want %d", len(stats.Labels), len(stats.Series), StatsRangeWeek)
	}
	if stats.Labels[0] != "2025-06-04" || stats.Labels[6] != "2025-06-10" {
		t.Errorf("labels span %q..%q, want 2025-06-04..2025-06-10", stats.Labels[0], stats.Labels[6])
	}
	want := []int64{0, 0, 0, 1, 0, 0, 3}
	for i, v := range want {
		if stats.Series[i] != v {
			t.Errorf("Series[%d] = %d, want %d", i, stats.Series[i], v)
		}
	}
}

func TestStats_UnknownRangeFallsBack(t *testing.T) {
	t.Parallel()

	store := newFakeDashboardStore()
	svc := NewDashboardService(store, testLogger())

	stats, err := svc.Stats(context.Background(), "u1", 90)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(stats.Labels) != StatsRangeWeek {
		t.Errorf("labels length = %d, want fallback %d", len(stats.Labels), StatsRangeWeek)
	}
}
