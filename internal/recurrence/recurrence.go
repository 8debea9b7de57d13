// Package recurrence decides whether a schedule is due. ShouldTrigger gates
// live delivery; DueOn answers the same question for arbitrary calendar days
// without the once-per-day gate and is used for display only.
package recurrence

import (
	"time"

	"github.com/hyperengineering/pulse/internal/types"
)

// ShouldTrigger reports whether s fires at now. It is pure.
//
// A schedule fires when it is enabled, now has reached today's time of day,
// today matches its recurrence, and it has not already fired today. A stamp
// from a later day does not suppress today's firing.
func ShouldTrigger(s types.AlertSchedule, now time.Time) bool {
	if !s.Enabled {
		return false
	}

	today := types.DateOf(now)
	if now.Before(today.At(s.TimeOfDay, now.Location())) {
		return false
	}

	if !matches(s.Recurrence, today) {
		return false
	}

	return s.LastTriggered == nil || *s.LastTriggered != today
}

// DueOn reports whether s would be due on date, ignoring LastTriggered.
func DueOn(s types.AlertSchedule, date types.Date) bool {
	if !s.Enabled {
		return false
	}
	return matches(s.Recurrence, date)
}

func matches(r types.Recurrence, date types.Date) bool {
	switch rec := r.(type) {
	case types.Daily:
		return true
	case types.Weekly:
		return rec.Includes(date.Weekday())
	case types.Custom:
		return rec.Date == date
	default:
		return false
	}
}
