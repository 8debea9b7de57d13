// Package goals tracks health goals, their check-ins and status, and places
// each goal's next check-in reminder through the reminder engine.
package goals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pulse/internal/coach"
	"github.com/hyperengineering/pulse/internal/metrics"
	"github.com/hyperengineering/pulse/internal/reminder"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
)

// ErrInvalidGoal is returned when goal or check-in input is malformed.
var ErrInvalidGoal = errors.New("invalid goal")

// CheckInTime is the wall-clock time of check-in reminders.
var CheckInTime = types.TimeOfDay{Hour: 9}

// Scheduler manages goals and check-ins on top of a store.Store.
type Scheduler struct {
	store   store.Store
	coach   coach.Coach
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCoach sets the collaborator that phrases check-in reminders.
func WithCoach(c coach.Coach) Option {
	return func(s *Scheduler) { s.coach = c }
}

// WithMetrics wires Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithIDGenerator overrides ULID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scheduler) { s.newID = fn }
}

// NewScheduler creates a Scheduler over st.
func NewScheduler(st store.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store: st,
		coach: coach.Static{},
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeProgress returns current/target as a percentage clamped to
// [0, 100]. A target that is unset or not positive yields 0.
func ComputeProgress(g types.HealthGoal) float64 {
	if g.TargetValue <= 0 || math.IsNaN(g.TargetValue) || math.IsNaN(g.CurrentValue) {
		return 0
	}
	p := g.CurrentValue / g.TargetValue * 100
	return math.Max(0, math.Min(100, p))
}

// CreateGoal persists a new active goal together with its first check-in
// reminder, one check-in period after creation. Progress starts at 0 whatever
// the starting value; the first check-in recomputes it.
func (s *Scheduler) CreateGoal(ctx context.Context, in types.NewHealthGoal) (types.HealthGoal, error) {
	if strings.TrimSpace(in.Title) == "" {
		return types.HealthGoal{}, fmt.Errorf("%w: title is required", ErrInvalidGoal)
	}
	if in.Category == "" {
		in.Category = types.GoalCustom
	}
	if !in.Category.Valid() {
		return types.HealthGoal{}, fmt.Errorf("%w: unknown category %q", ErrInvalidGoal, in.Category)
	}
	if in.CheckInFrequency == "" {
		in.CheckInFrequency = types.CheckInWeekly
	}
	if !in.CheckInFrequency.Valid() {
		return types.HealthGoal{}, fmt.Errorf("%w: unknown check-in frequency %q", ErrInvalidGoal, in.CheckInFrequency)
	}

	now := s.now()
	g := types.HealthGoal{
		ID:               s.newID(),
		Title:            in.Title,
		Description:      in.Description,
		Category:         in.Category,
		TargetValue:      in.TargetValue,
		CurrentValue:     in.CurrentValue,
		Unit:             in.Unit,
		TargetDate:       in.TargetDate,
		CreatedAt:        now,
		UpdatedAt:        now,
		Status:           types.GoalActive,
		CheckInFrequency: in.CheckInFrequency,
		Milestones:       []types.Milestone{},
		Progress:         0,
		Notes:            []string{},
	}
	if in.TargetValue <= 0 {
		slog.Warn("goal created without a positive target; progress stays at 0",
			"component", "goals",
			"goal_id", g.ID,
		)
	}

	reminderReq := s.checkInReminder(ctx, g, in.CheckInFrequency.Next(types.DateOf(now)))
	reminderID := s.newID()

	err := store.UpdateWithRetry(ctx, s.store, func(tx store.Tx) error {
		goals, err := tx.Goals()
		if err != nil {
			return err
		}
		if err := tx.SetGoals(append(goals, g)); err != nil {
			return err
		}
		_, err = reminder.Inject(tx, reminderReq, reminderID)
		return err
	})
	if err != nil {
		return types.HealthGoal{}, err
	}

	slog.Info("goal created",
		"component", "goals",
		"goal_id", g.ID,
		"category", g.Category,
		"first_check_in", reminderReq.Date,
	)
	return g, nil
}

// RecordCheckIn logs a check-in against goalID, updates the goal's value and
// progress, and places the next check-in reminder one period from now.
func (s *Scheduler) RecordCheckIn(ctx context.Context, goalID string, value float64, notes string, mood *int) (types.GoalCheckIn, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return types.GoalCheckIn{}, fmt.Errorf("%w: value must be a finite number", ErrInvalidGoal)
	}
	if mood != nil && (*mood < 1 || *mood > 10) {
		return types.GoalCheckIn{}, fmt.Errorf("%w: mood must be between 1 and 10", ErrInvalidGoal)
	}

	goal, err := s.Get(ctx, goalID)
	if err != nil {
		return types.GoalCheckIn{}, err
	}

	now := s.now()
	goal.CurrentValue = value
	goal.Progress = ComputeProgress(goal)
	reminderReq := s.checkInReminder(ctx, goal, goal.CheckInFrequency.Next(types.DateOf(now)))

	checkIn := types.GoalCheckIn{
		ID:        s.newID(),
		GoalID:    goalID,
		Value:     value,
		Notes:     notes,
		CreatedAt: now,
		Mood:      mood,
	}
	reminderID := s.newID()

	err = store.UpdateWithRetry(ctx, s.store, func(tx store.Tx) error {
		goals, err := tx.Goals()
		if err != nil {
			return err
		}
		i := indexOf(goals, goalID)
		if i < 0 {
			return fmt.Errorf("goal %s: %w", goalID, store.ErrNotFound)
		}
		g := &goals[i]
		g.CurrentValue = value
		g.Progress = ComputeProgress(*g)
		g.UpdatedAt = now
		last := now
		g.LastCheckIn = &last
		if err := tx.SetGoals(goals); err != nil {
			return err
		}

		checkIns, err := tx.CheckIns()
		if err != nil {
			return err
		}
		if err := tx.SetCheckIns(append(checkIns, checkIn)); err != nil {
			return err
		}

		_, err = reminder.Inject(tx, reminderReq, reminderID)
		return err
	})
	if err != nil {
		return types.GoalCheckIn{}, err
	}

	s.metrics.ObserveCheckIn()
	slog.Info("check-in recorded",
		"component", "goals",
		"goal_id", goalID,
		"progress", goal.Progress,
		"next_check_in", reminderReq.Date,
	)
	return checkIn, nil
}

// checkInReminder builds the ad-hoc reminder for g's next check-in. The coach
// is consulted outside any transaction; when it fails the static phrasing is
// used.
func (s *Scheduler) checkInReminder(ctx context.Context, g types.HealthGoal, date types.Date) types.AdHocReminder {
	desc, err := s.coach.CheckInPrompt(ctx, g)
	if err != nil {
		slog.Warn("coach unavailable, using default check-in text",
			"component", "goals",
			"goal_id", g.ID,
			"error", err,
		)
		desc = coach.Describe(g)
	}
	return types.AdHocReminder{
		Owner:       &types.OwnerRef{Kind: types.OwnerGoal, ID: g.ID},
		Title:       "Check in: " + g.Title,
		Description: desc,
		Date:        date,
		TimeOfDay:   CheckInTime,
		Type:        g.Category.ScheduleType(),
	}
}

// RefreshStatuses re-derives goal status at now and returns the goals whose
// status changed.
//
// Two independent checks run per goal, in order: an active goal past its
// target date with progress below 100 becomes overdue; then any goal at 100
// that is not yet completed becomes completed. An overdue goal is therefore
// never re-evaluated by the first check but can always complete.
func (s *Scheduler) RefreshStatuses(ctx context.Context, now time.Time) ([]types.HealthGoal, error) {
	var changed []types.HealthGoal
	err := store.UpdateWithRetry(ctx, s.store, func(tx store.Tx) error {
		changed = nil
		goals, err := tx.Goals()
		if err != nil {
			return err
		}
		for i := range goals {
			if refresh(&goals[i], now) {
				goals[i].UpdatedAt = now
				changed = append(changed, goals[i])
			}
		}
		if len(changed) == 0 {
			return nil
		}
		return tx.SetGoals(goals)
	})
	if err != nil {
		return nil, err
	}

	for _, g := range changed {
		s.metrics.ObserveStatusChange(g.Status)
		slog.Info("goal status changed",
			"component", "goals",
			"goal_id", g.ID,
			"status", g.Status,
		)
	}
	return changed, nil
}

// refresh applies the status transitions to g and reports whether its status
// changed. The target date counts from its midnight in now's location, so a
// goal becomes overdue during its target day.
func refresh(g *types.HealthGoal, now time.Time) bool {
	before := g.Status
	if g.Status == types.GoalActive && !g.TargetDate.IsZero() && pastTarget(g.TargetDate, now) && g.Progress < 100 {
		g.Status = types.GoalOverdue
	}
	if g.Progress >= 100 && g.Status != types.GoalCompleted {
		g.Status = types.GoalCompleted
	}
	return g.Status != before
}

func pastTarget(target types.Date, now time.Time) bool {
	return target.At(types.TimeOfDay{}, now.Location()).Before(now)
}

// DeleteGoal removes a goal and every reminder it owns. Unknown ids are a
// no-op. Past check-ins are kept.
func (s *Scheduler) DeleteGoal(ctx context.Context, goalID string) error {
	var found bool
	var removed int
	err := store.UpdateWithRetry(ctx, s.store, func(tx store.Tx) error {
		found, removed = false, 0
		goals, err := tx.Goals()
		if err != nil {
			return err
		}
		i := indexOf(goals, goalID)
		if i < 0 {
			return nil
		}
		found = true
		if err := tx.SetGoals(append(goals[:i], goals[i+1:]...)); err != nil {
			return err
		}
		removed, err = reminder.RemoveOwned(tx, types.OwnerRef{Kind: types.OwnerGoal, ID: goalID})
		return err
	})
	if err != nil {
		return err
	}
	if found {
		slog.Info("goal deleted",
			"component", "goals",
			"goal_id", goalID,
			"reminders_removed", removed,
		)
	}
	return nil
}

// SetPaused pauses an active or overdue goal, or resumes a paused one.
// Completed goals are left alone. It returns ErrNotFound for unknown ids.
func (s *Scheduler) SetPaused(ctx context.Context, goalID string, paused bool) (types.HealthGoal, error) {
	now := s.now()
	var out types.HealthGoal
	err := store.UpdateWithRetry(ctx, s.store, func(tx store.Tx) error {
		goals, err := tx.Goals()
		if err != nil {
			return err
		}
		i := indexOf(goals, goalID)
		if i < 0 {
			return fmt.Errorf("goal %s: %w", goalID, store.ErrNotFound)
		}
		g := &goals[i]
		out = *g

		next := g.Status
		switch {
		case paused && (g.Status == types.GoalActive || g.Status == types.GoalOverdue):
			next = types.GoalPaused
		case !paused && g.Status == types.GoalPaused:
			next = types.GoalActive
		}
		if next == g.Status {
			return nil
		}
		g.Status = next
		g.UpdatedAt = now
		out = *g
		return tx.SetGoals(goals)
	})
	return out, err
}

// List returns every goal in creation order.
func (s *Scheduler) List(ctx context.Context) ([]types.HealthGoal, error) {
	var goals []types.HealthGoal
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		goals, err = tx.Goals()
		return err
	})
	return goals, err
}

// Get returns one goal or ErrNotFound.
func (s *Scheduler) Get(ctx context.Context, goalID string) (types.HealthGoal, error) {
	goals, err := s.List(ctx)
	if err != nil {
		return types.HealthGoal{}, err
	}
	i := indexOf(goals, goalID)
	if i < 0 {
		return types.HealthGoal{}, fmt.Errorf("goal %s: %w", goalID, store.ErrNotFound)
	}
	return goals[i], nil
}

// CheckIns returns the check-ins logged against goalID, oldest first.
func (s *Scheduler) CheckIns(ctx context.Context, goalID string) ([]types.GoalCheckIn, error) {
	var all []types.GoalCheckIn
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		all, err = tx.CheckIns()
		return err
	})
	if err != nil {
		return nil, err
	}
	out := []types.GoalCheckIn{}
	for _, c := range all {
		if c.GoalID == goalID {
			out = append(out, c)
		}
	}
	return out, nil
}

func indexOf(goals []types.HealthGoal, id string) int {
	for i := range goals {
		if goals[i].ID == id {
			return i
		}
	}
	return -1
}
