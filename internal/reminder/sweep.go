package reminder

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pulse/internal/recurrence"
	"github.com/hyperengineering/pulse/internal/types"
)

// SweepOptions carries the static inputs of a sweep.
type SweepOptions struct {
	// Categories decorates alerts with a specialist reference.
	Categories types.CategoryMap
	// NewID generates alert IDs. Defaults to ULIDs.
	NewID func() string
	// Orphaned reports schedules whose owner no longer exists. Orphaned
	// schedules never fire.
	Orphaned func(s types.AlertSchedule) bool
}

// SweepResult is the outcome of one sweep.
type SweepResult struct {
	Preferences types.Preferences
	Alerts      []types.Alert
	// SentToday counts alerts already in the log for today before this sweep.
	SentToday int
	// Skipped counts due schedules dropped because the cap was reached.
	Skipped    int
	CapReached bool
}

// Sweep evaluates every schedule at now and materializes an alert for each
// one that fires, in list order, until the daily cap is reached. It does not
// modify its inputs; the returned preferences carry the updated
// LastTriggered stamps.
//
// Due schedules left over once the cap is reached are skipped for the rest
// of the day: they are neither deferred nor stamped.
func Sweep(prefs types.Preferences, log []types.Alert, now time.Time, opts SweepOptions) SweepResult {
	res := SweepResult{Preferences: prefs, Alerts: []types.Alert{}}
	if !prefs.Enabled {
		return res
	}

	today := types.DateOf(now)
	res.SentToday = countOn(log, today, now.Location())

	remaining := prefs.MaxAlertsPerDay - res.SentToday
	if remaining <= 0 {
		res.CapReached = true
		return res
	}

	newID := opts.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}

	schedules := make([]types.AlertSchedule, len(prefs.Schedules))
	copy(schedules, prefs.Schedules)

	for i, s := range schedules {
		if opts.Orphaned != nil && opts.Orphaned(s) {
			continue
		}
		if !recurrence.ShouldTrigger(s, now) {
			continue
		}
		if len(res.Alerts) >= remaining {
			res.Skipped++
			res.CapReached = true
			continue
		}

		stamp := today
		schedules[i].LastTriggered = &stamp
		res.Alerts = append(res.Alerts, newAlert(s, now, newID(), opts.Categories))
	}

	res.Preferences.Schedules = schedules
	return res
}

func newAlert(s types.AlertSchedule, now time.Time, id string, categories types.CategoryMap) types.Alert {
	return types.Alert{
		ID:                id,
		ScheduleID:        s.ID,
		Type:              s.Type,
		Title:             s.Title,
		Description:       s.Description,
		Severity:          types.SeverityMedium,
		CreatedAt:         now,
		LinkedCategoryRef: categories.Lookup(s.Type),
		LinkedNoteID:      s.LinkedNoteID,
	}
}

// countOn counts alerts created on day, judged in loc.
func countOn(log []types.Alert, day types.Date, loc *time.Location) int {
	n := 0
	for _, a := range log {
		if types.DateOf(a.CreatedAt.In(loc)) == day {
			n++
		}
	}
	return n
}

// pruneAlerts drops read alerts created before now-retention. A zero
// retention keeps everything.
func pruneAlerts(log []types.Alert, now time.Time, retention time.Duration) (kept, pruned []types.Alert) {
	if retention <= 0 {
		return log, nil
	}
	cutoff := now.Add(-retention)
	kept = make([]types.Alert, 0, len(log))
	for _, a := range log {
		if a.Read && a.CreatedAt.Before(cutoff) {
			pruned = append(pruned, a)
			continue
		}
		kept = append(kept, a)
	}
	return kept, pruned
}

// pruneExpiredAdHoc drops injected one-shot schedules whose date has passed.
// They can never fire again. User-defined custom schedules are kept.
func pruneExpiredAdHoc(schedules []types.AlertSchedule, today types.Date) ([]types.AlertSchedule, int) {
	kept := make([]types.AlertSchedule, 0, len(schedules))
	for _, s := range schedules {
		if c, ok := s.Recurrence.(types.Custom); ok && s.Owner != nil && c.Date.Before(today) {
			continue
		}
		kept = append(kept, s)
	}
	return kept, len(schedules) - len(kept)
}
