package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
)

func TestProject_AnnotatesEachDay(t *testing.T) {
	schedules := []types.AlertSchedule{
		{ID: "daily", Type: types.TypeWater, Enabled: true, Recurrence: types.Daily{}},
		{ID: "mon-wed", Type: types.TypeExercise, Enabled: true, Recurrence: types.Weekly{Weekdays: []time.Weekday{time.Monday, time.Wednesday}}},
		{ID: "once", Type: types.TypeCustom, Enabled: true, Recurrence: types.Custom{Date: types.Date{Year: 2026, Month: time.October, Day: 20}}},
		{ID: "off", Type: types.TypeMood, Enabled: false, Recurrence: types.Daily{}},
	}

	// Sunday 18th through Wednesday 21st.
	from := types.Date{Year: 2026, Month: time.October, Day: 18}
	to := types.Date{Year: 2026, Month: time.October, Day: 21}

	days, err := Project(schedules, from, to)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(days) != 4 {
		t.Fatalf("got %d days, want 4", len(days))
	}

	want := map[string][]string{
		"2026-10-18": {"daily"},
		"2026-10-19": {"daily", "mon-wed"},
		"2026-10-20": {"daily", "once"},
		"2026-10-21": {"daily", "mon-wed"},
	}
	for _, day := range days {
		var ids []string
		for _, s := range day.Schedules {
			ids = append(ids, s.ID)
		}
		exp := want[day.Date.String()]
		if len(ids) != len(exp) {
			t.Errorf("%s: got %v, want %v", day.Date, ids, exp)
			continue
		}
		for i := range ids {
			if ids[i] != exp[i] {
				t.Errorf("%s: got %v, want %v", day.Date, ids, exp)
			}
		}
	}
}

func TestProject_InvalidRange(t *testing.T) {
	from := types.Date{Year: 2026, Month: time.October, Day: 18}

	if _, err := Project(nil, from, from.AddDays(-1)); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("reversed range: got %v, want ErrInvalidRange", err)
	}
	if _, err := Project(nil, from, from.AddDays(MaxRangeDays)); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("oversized range: got %v, want ErrInvalidRange", err)
	}
	if days, err := Project(nil, from, from.AddDays(MaxRangeDays-1)); err != nil || len(days) != MaxRangeDays {
		t.Errorf("max range: got %d days, err %v", len(days), err)
	}
}

func TestDue_EmptyIsNonNil(t *testing.T) {
	if got := Due(nil, types.Date{Year: 2026, Month: time.January, Day: 1}); got == nil {
		t.Error("Due should return an empty, non-nil slice")
	}
}
