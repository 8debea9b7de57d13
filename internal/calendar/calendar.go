// Package calendar projects schedules onto a range of dates for display.
package calendar

import (
	"errors"

	"github.com/hyperengineering/pulse/internal/recurrence"
	"github.com/hyperengineering/pulse/internal/types"
)

// MaxRangeDays bounds a single projection.
const MaxRangeDays = 366

// ErrInvalidRange is returned when to precedes from or the span is too long.
var ErrInvalidRange = errors.New("invalid calendar range")

// Due returns the schedules due on date, in list order.
func Due(schedules []types.AlertSchedule, date types.Date) []types.AlertSchedule {
	due := []types.AlertSchedule{}
	for _, s := range schedules {
		if recurrence.DueOn(s, date) {
			due = append(due, s)
		}
	}
	return due
}

// Project returns one CalendarDay per date in [from, to], inclusive.
func Project(schedules []types.AlertSchedule, from, to types.Date) ([]types.CalendarDay, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	var days []types.CalendarDay
	for d := from; !d.After(to); d = d.AddDays(1) {
		if len(days) >= MaxRangeDays {
			return nil, ErrInvalidRange
		}
		days = append(days, types.CalendarDay{Date: d, Schedules: Due(schedules, d)})
	}
	return days, nil
}
