// Package expiry removes messages past their time-to-live.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultSweepInterval is the time between expiry sweeps.
const DefaultSweepInterval = time.Hour

// MessageReaper is the persistence surface the worker needs.
// *repository.Repository satisfies it.
type MessageReaper interface {
	DeleteExpiredMessages(ctx context.Context, now time.Time) (int64, error)
}

// Worker sweeps expired messages on an interval. Reads already exclude
// expired rows, so the sweep only reclaims storage; nothing user-visible
// depends on its timing.
type Worker struct {
	repo     MessageReaper
	logger   *slog.Logger
	interval time.Duration
	started  bool

	// now is injectable for tests.
	now func() time.Time
}

// NewWorker creates an expiry worker.
func NewWorker(repo MessageReaper, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Worker{
		repo:     repo,
		logger:   logger.With("component", "expiry.worker"),
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the sweep loop. Blocks until context is cancelled.
// One sweep runs immediately so a restart never defers cleanup by a full
// interval.
func (w *Worker) Run(ctx context.Context) error {
	if w.started {
		return errors.New("worker already started")
	}
	w.started = true

	w.logger.Info("expiry worker started", "interval", w.interval.String())

	if err := w.sweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("sweep error", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.sweepOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("sweep error", "error", err)
			}
		}
	}
}

// sweepOnce deletes everything past its expiry.
func (w *Worker) sweepOnce(ctx context.Context) error {
	deleted, err := w.repo.DeleteExpiredMessages(ctx, w.now().UTC())
	if err != nil {
		return fmt.Errorf("delete expired messages: %w", err)
	}

	if deleted > 0 {
		w.logger.Info("expired messages swept", "count", deleted)
	}

	return nil
}
