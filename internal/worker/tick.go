package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hyperengineering/pulse/internal/lock"
	"github.com/hyperengineering/pulse/internal/types"
)

// Ticker defines the engine operation driven by the tick worker.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) ([]types.Alert, error)
}

// TickWorker polls the reminder engine on a fixed interval. Each sweep runs
// under a lock so that processes sharing a store never sweep concurrently.
type TickWorker struct {
	engine   Ticker
	locker   lock.Locker
	interval time.Duration
	now      func() time.Time
}

// NewTickWorker creates a worker with the given engine, lock, and interval.
func NewTickWorker(engine Ticker, locker lock.Locker, interval time.Duration) *TickWorker {
	return &TickWorker{
		engine:   engine,
		locker:   locker,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// Runs one sweep immediately so reminders due at startup are not delayed by
// a full interval.
func (w *TickWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "tick",
		"interval", w.interval.String(),
	)

	w.runTick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "tick",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runTick(ctx)
		}
	}
}

// runTick executes a single sweep under the lock.
func (w *TickWorker) runTick(ctx context.Context) {
	release, err := w.locker.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, lock.ErrNotAcquired) {
			slog.Debug("tick skipped, lock held elsewhere",
				"component", "worker",
				"worker", "tick",
				"action", "tick_skipped",
			)
			return
		}
		slog.Error("tick lock failed",
			"component", "worker",
			"worker", "tick",
			"action", "lock_failed",
			"error", err,
		)
		return
	}
	defer func() {
		// Release even when ctx was cancelled mid-sweep.
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("tick lock release failed",
				"component", "worker",
				"worker", "tick",
				"error", err,
			)
		}
	}()

	alerts, err := w.engine.Tick(ctx, w.now())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("tick failed",
			"component", "worker",
			"worker", "tick",
			"action", "tick_failed",
			"error", err,
		)
		return
	}

	for _, a := range alerts {
		slog.Info("alert fired",
			"component", "worker",
			"worker", "tick",
			"alert_id", a.ID,
			"schedule_id", a.ScheduleID,
			"type", a.Type,
		)
	}
}
