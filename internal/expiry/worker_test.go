package expiry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakeReaper struct {
	mu     sync.Mutex
	sweeps []time.Time
	count  int64
	err    error
}

func (r *fakeReaper) DeleteExpiredMessages(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = append(r.sweeps, now)
	if r.err != nil {
		return 0, r.err
	}
	return r.count, nil
}

func (r *fakeReaper) sweepCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sweeps)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_SweepsImmediatelyAndOnTicks(t *testing.T) {
	t.Parallel()

	reaper := &fakeReaper{count: 3}
	worker := NewWorker(reaper, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for reaper.sweepCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d sweeps before deadline", reaper.sweepCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() returned %v, want context.Canceled", err)
	}
}

func TestWorker_KeepsRunningAfterSweepError(t *testing.T) {
	t.Parallel()

	reaper := &fakeReaper{err: errors.New("connection refused")}
	worker := NewWorker(reaper, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for reaper.sweepCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("worker stopped retrying after errors, %d sweeps", reaper.sweepCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestWorker_SecondRunRejected(t *testing.T) {
	t.Parallel()

	worker := NewWorker(&fakeReaper{}, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = worker.Run(ctx)

	if err := worker.Run(context.Background()); err == nil {
		t.Error("second Run() succeeded, want error")
	}
}

func TestWorker_DefaultInterval(t *testing.T) {
	t.Parallel()

	worker := NewWorker(&fakeReaper{}, 0, testLogger())
	if worker.interval != DefaultSweepInterval {
		t.Errorf("interval = %v, want %v", worker.interval, DefaultSweepInterval)
	}
}
