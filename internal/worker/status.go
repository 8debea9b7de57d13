package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
)

// StatusRefresher defines the goal operation driven by the status worker.
type StatusRefresher interface {
	RefreshStatuses(ctx context.Context, now time.Time) ([]types.HealthGoal, error)
}

// GoalStatusWorker periodically re-derives goal status so goals become
// overdue without waiting for a check-in.
type GoalStatusWorker struct {
	goals    StatusRefresher
	interval time.Duration
	now      func() time.Time
}

// NewGoalStatusWorker creates a worker with the given scheduler and interval.
func NewGoalStatusWorker(goals StatusRefresher, interval time.Duration) *GoalStatusWorker {
	return &GoalStatusWorker{
		goals:    goals,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// Does NOT run immediately on start; status only changes on date rollover.
func (w *GoalStatusWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "goal-status",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "goal-status",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runRefresh(ctx)
		}
	}
}

// runRefresh executes a single refresh cycle.
func (w *GoalStatusWorker) runRefresh(ctx context.Context) {
	start := time.Now()

	changed, err := w.goals.RefreshStatuses(ctx, w.now())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("goal status refresh failed",
			"component", "worker",
			"action", "refresh_failed",
			"error", err,
		)
		return
	}

	slog.Debug("goal status refresh completed",
		"component", "worker",
		"action", "refresh_complete",
		"changed", len(changed),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
