//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/hyperengineering/pulse/pkg/client"
)

func goalReminders(t *testing.T, srv *testServer, goalID string) []types.AlertSchedule {
	t.Helper()
	prefs, err := srv.Client.Preferences(context.Background())
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	var out []types.AlertSchedule
	for _, s := range prefs.Schedules {
		if s.Owner != nil && s.Owner.Kind == types.OwnerGoal && s.Owner.ID == goalID {
			out = append(out, s)
		}
	}
	return out
}

// TestGoalLifecycle creates a monthly goal, checks in until it is complete,
// and deletes it.
func TestGoalLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(2024, time.January, 31, 12, 0))
	srv := startServer(t, clock)

	goal, err := srv.Client.CreateGoal(ctx, types.NewHealthGoal{
		Title:            "Drink more water",
		Category:         types.GoalHydration,
		TargetValue:      8,
		Unit:             "glasses",
		TargetDate:       types.Date{Year: 2024, Month: time.June, Day: 30},
		CheckInFrequency: types.CheckInMonthly,
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if goal.Status != types.GoalActive || goal.Progress != 0 {
		t.Fatalf("new goal = %+v", goal)
	}

	// The first check-in lands one month out, clamped to the end of February.
	reminders := goalReminders(t, srv, goal.ID)
	if len(reminders) != 1 {
		t.Fatalf("reminders after create = %d, want 1", len(reminders))
	}
	due, err := srv.Client.DueOn(ctx, types.Date{Year: 2024, Month: time.February, Day: 29})
	if err != nil {
		t.Fatalf("due on: %v", err)
	}
	if len(due) != 1 || due[0].ID != reminders[0].ID {
		t.Fatalf("due on 2024-02-29 = %+v, want the check-in reminder", due)
	}

	// The reminder fires at 09:00 on its day.
	resp, err := srv.Client.Tick(ctx, at(2024, time.February, 29, 9, 0))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(resp.Alerts) != 1 || resp.Alerts[0].ScheduleID != reminders[0].ID {
		t.Fatalf("check-in tick = %+v", resp.Alerts)
	}

	clock.Set(at(2024, time.February, 29, 9, 5))
	mood := 7
	checkIn, err := srv.Client.CheckIn(ctx, goal.ID, types.CheckInRequest{Value: 4, Notes: "halfway", Mood: &mood})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if checkIn.GoalID != goal.ID || checkIn.Value != 4 {
		t.Errorf("check-in = %+v", checkIn)
	}

	got, err := srv.Client.Goal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if got.Progress != 50 || got.CurrentValue != 4 || got.LastCheckIn == nil {
		t.Errorf("goal after check-in = %+v", got)
	}

	// The next check-in is a month after the check-in.
	due, err = srv.Client.DueOn(ctx, types.Date{Year: 2024, Month: time.March, Day: 29})
	if err != nil {
		t.Fatalf("due on: %v", err)
	}
	if len(due) != 1 || due[0].Owner == nil || due[0].Owner.ID != goal.ID {
		t.Errorf("due on 2024-03-29 = %+v, want the next check-in", due)
	}

	clock.Set(at(2024, time.March, 10, 8, 0))
	if _, err := srv.Client.CheckIn(ctx, goal.ID, types.CheckInRequest{Value: 8}); err != nil {
		t.Fatalf("check in: %v", err)
	}
	changed, err := srv.Client.RefreshGoals(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(changed) != 1 || changed[0].Status != types.GoalCompleted {
		t.Fatalf("refresh changed = %+v, want completed goal", changed)
	}

	checkIns, err := srv.Client.CheckIns(ctx, goal.ID)
	if err != nil {
		t.Fatalf("check-ins: %v", err)
	}
	if len(checkIns) != 2 {
		t.Errorf("check-ins = %d, want 2", len(checkIns))
	}

	if err := srv.Client.DeleteGoal(ctx, goal.ID); err != nil {
		t.Fatalf("delete goal: %v", err)
	}
	if left := goalReminders(t, srv, goal.ID); len(left) != 0 {
		t.Errorf("reminders after delete = %d, want 0", len(left))
	}
	if _, err := srv.Client.Goal(ctx, goal.ID); !client.IsNotFound(err) {
		t.Errorf("get deleted goal: err = %v, want not found", err)
	}
}

func TestGoalOverdueAndPause(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(2024, time.March, 1, 12, 0))
	srv := startServer(t, clock)

	deadline := types.Date{Year: 2024, Month: time.March, Day: 10}
	late, err := srv.Client.CreateGoal(ctx, types.NewHealthGoal{Title: "Lose 2kg", Category: types.GoalWeight, TargetValue: 2, TargetDate: deadline})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	paused, err := srv.Client.CreateGoal(ctx, types.NewHealthGoal{Title: "Sleep 8h", Category: types.GoalSleep, TargetValue: 8, TargetDate: deadline})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if _, err := srv.Client.PauseGoal(ctx, paused.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// The day before the target date the goal is still on track.
	clock.Set(deadline.AddDays(-1).At(types.TimeOfDay{Hour: 23}, time.UTC))
	changed, err := srv.Client.RefreshGoals(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("refresh before target date changed %d goals", len(changed))
	}

	clock.Set(deadline.At(types.TimeOfDay{Hour: 18}, time.UTC))
	changed, err = srv.Client.RefreshGoals(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(changed) != 1 || changed[0].ID != late.ID || changed[0].Status != types.GoalOverdue {
		t.Fatalf("refresh changed = %+v, want only %s overdue", changed, late.ID)
	}

	resumed, err := srv.Client.ResumeGoal(ctx, paused.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status != types.GoalActive {
		t.Errorf("resumed status = %s, want active", resumed.Status)
	}
}

// TestConcurrentCheckIns records check-ins from several clients at once and
// verifies none are lost.
func TestConcurrentCheckIns(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(2024, time.March, 4, 12, 0))
	srv := startServer(t, clock)

	goal, err := srv.Client.CreateGoal(ctx, types.NewHealthGoal{
		Title:            "Meditate",
		Category:         types.GoalMentalHealth,
		TargetValue:      100,
		CheckInFrequency: types.CheckInDaily,
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := client.New(client.Config{BaseURL: srv.srv.URL, APIKey: testAPIKey})
			if err != nil {
				errs <- err
				return
			}
			if _, err := c.CheckIn(ctx, goal.ID, types.CheckInRequest{Value: float64(i + 1), Notes: fmt.Sprintf("client %d", i)}); err != nil {
				errs <- fmt.Errorf("client %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	checkIns, err := srv.Client.CheckIns(ctx, goal.ID)
	if err != nil {
		t.Fatalf("check-ins: %v", err)
	}
	if len(checkIns) != workers {
		t.Errorf("check-ins = %d, want %d", len(checkIns), workers)
	}
	// One reminder from creation plus one per check-in.
	if n := len(goalReminders(t, srv, goal.ID)); n != workers+1 {
		t.Errorf("goal reminders = %d, want %d", n, workers+1)
	}
}
