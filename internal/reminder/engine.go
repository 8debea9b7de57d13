// Package reminder implements the trigger sweep and the alert lifecycle on
// top of a store.Store. Every operation is a single store transaction; the
// engine holds no state of its own between calls.
package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pulse/internal/calendar"
	"github.com/hyperengineering/pulse/internal/metrics"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
)

// Archiver receives alerts pruned from the delivered log, after the prune
// has committed.
type Archiver interface {
	Archive(ctx context.Context, alerts []types.Alert) error
}

// Engine evaluates schedules and manages delivered alerts.
type Engine struct {
	store      store.Store
	categories types.CategoryMap
	retention  time.Duration
	archiver   Archiver
	metrics    *metrics.Metrics
	now        func() time.Time
	newID      func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithCategories overrides the schedule type → specialist table.
func WithCategories(c types.CategoryMap) Option {
	return func(e *Engine) { e.categories = c }
}

// WithRetention sets how long read alerts stay in the delivered log.
// Zero disables pruning.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) { e.retention = d }
}

// WithArchiver sets where pruned alerts go.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// WithMetrics wires Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides time.Now for operations that are not given a time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides ULID generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an Engine over s.
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		categories: types.DefaultCategories,
		retention:  30 * 24 * time.Hour,
		now:        time.Now,
		newID:      func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Tick runs one trigger sweep at now and returns the alerts it produced.
// Updated LastTriggered stamps and the alert-log append commit in the same
// transaction, so repeated calls on the same day never duplicate an alert.
func (e *Engine) Tick(ctx context.Context, now time.Time) ([]types.Alert, error) {
	start := time.Now()

	var res SweepResult
	var pruned []types.Alert
	var droppedSchedules int

	err := store.UpdateWithRetry(ctx, e.store, func(tx store.Tx) error {
		pruned, droppedSchedules = nil, 0

		prefs, err := tx.Preferences()
		if err != nil {
			return err
		}
		log, err := tx.Alerts()
		if err != nil {
			return err
		}
		goals, err := tx.Goals()
		if err != nil {
			return err
		}

		res = Sweep(prefs, log, now, SweepOptions{
			Categories: e.categories,
			NewID:      e.newID,
			Orphaned:   orphanedBy(goals),
		})
		if !prefs.Enabled || (res.CapReached && len(res.Alerts) == 0) {
			return nil
		}

		var kept []types.Alert
		kept, pruned = pruneAlerts(log, now, e.retention)
		schedules, dropped := pruneExpiredAdHoc(res.Preferences.Schedules, types.DateOf(now))
		droppedSchedules = dropped

		if len(res.Alerts) == 0 && len(pruned) == 0 && dropped == 0 {
			return nil
		}

		res.Preferences.Schedules = schedules
		if err := tx.SetPreferences(res.Preferences); err != nil {
			return err
		}
		return tx.SetAlerts(append(kept, res.Alerts...))
	})
	if err != nil {
		slog.Error("tick failed",
			"component", "reminder",
			"action", "tick_failed",
			"error", err,
		)
		return nil, err
	}

	e.metrics.ObserveTick(time.Since(start), res.Alerts, res.Skipped, res.CapReached)
	e.metrics.ObservePruned(len(pruned))

	if len(res.Alerts) > 0 || res.Skipped > 0 {
		slog.Info("tick completed",
			"component", "reminder",
			"action", "tick_complete",
			"fired", len(res.Alerts),
			"sent_today", res.SentToday,
			"skipped_by_cap", res.Skipped,
			"pruned_alerts", len(pruned),
			"pruned_schedules", droppedSchedules,
		)
	}

	if len(pruned) > 0 && e.archiver != nil {
		if err := e.archiver.Archive(ctx, pruned); err != nil {
			slog.Warn("archiving pruned alerts failed",
				"component", "reminder",
				"count", len(pruned),
				"error", err,
			)
		}
	}

	return res.Alerts, nil
}

// orphanedBy returns a predicate matching schedules owned by a goal that is
// not in goals.
func orphanedBy(goals []types.HealthGoal) func(types.AlertSchedule) bool {
	known := make(map[string]struct{}, len(goals))
	for _, g := range goals {
		known[g.ID] = struct{}{}
	}
	return func(s types.AlertSchedule) bool {
		if s.Owner == nil || s.Owner.Kind != types.OwnerGoal {
			return false
		}
		_, ok := known[s.Owner.ID]
		return !ok
	}
}

// Preferences returns the current preferences.
func (e *Engine) Preferences(ctx context.Context) (types.Preferences, error) {
	var prefs types.Preferences
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		prefs, err = tx.Preferences()
		return err
	})
	return prefs, err
}

// Alerts returns delivered alerts newest first, optionally only unread ones.
func (e *Engine) Alerts(ctx context.Context, unreadOnly bool) ([]types.Alert, error) {
	var log []types.Alert
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		log, err = tx.Alerts()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]types.Alert, 0, len(log))
	for _, a := range log {
		if unreadOnly && a.Read {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DueOn returns the schedules that would be due on date, for display.
func (e *Engine) DueOn(ctx context.Context, date types.Date) ([]types.AlertSchedule, error) {
	prefs, err := e.Preferences(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.Due(prefs.Schedules, date), nil
}

// Calendar projects the schedules over [from, to].
func (e *Engine) Calendar(ctx context.Context, from, to types.Date) ([]types.CalendarDay, error) {
	prefs, err := e.Preferences(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.Project(prefs.Schedules, from, to)
}

// ErrInvalidReminder is returned when an injected reminder or schedule
// update is malformed.
var ErrInvalidReminder = errors.New("invalid reminder")
