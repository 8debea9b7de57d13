package validation

import (
	"fmt"
	"math"

	"github.com/hyperengineering/pulse/internal/types"
)

// Field limits for user-supplied text.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxNotesLength       = 2000
	MaxSnoozeMinutes     = 24 * 60
)

func scheduleTypeNames() []string {
	out := make([]string, len(types.ScheduleTypes))
	for i, t := range types.ScheduleTypes {
		out[i] = string(t)
	}
	return out
}

func validateText(c *Collector, field, value string, max int, required bool) {
	if required {
		if err := ValidateRequired(field, value); err != nil {
			c.Add(err)
			return
		}
	}
	c.Add(ValidateUTF8(field, value))
	c.Add(ValidateNoNullBytes(field, value))
	c.Add(ValidateMaxLength(field, value, max))
}

// ValidateAdHocReminder validates the body of POST /reminders.
func ValidateAdHocReminder(r types.AdHocReminder) []ValidationError {
	var c Collector
	validateText(&c, "title", r.Title, MaxTitleLength, true)
	validateText(&c, "description", r.Description, MaxDescriptionLength, false)
	if r.Date.IsZero() {
		c.Add(&ValidationError{Field: "date", Message: "is required"})
	}
	if !r.TimeOfDay.Valid() {
		c.Add(&ValidationError{Field: "time_of_day", Message: "must be a valid HH:MM time"})
	}
	if r.Type != "" {
		c.Add(ValidateEnum("type", string(r.Type), scheduleTypeNames()))
	}
	if r.Owner != nil {
		c.Add(ValidateEnum("owner.kind", string(r.Owner.Kind), []string{string(types.OwnerNote), string(types.OwnerGoal)}))
		c.Add(ValidateRequired("owner.id", r.Owner.ID))
	}
	return c.Errors()
}

// ValidateNewGoal validates the body of POST /goals.
func ValidateNewGoal(g types.NewHealthGoal) []ValidationError {
	var c Collector
	validateText(&c, "title", g.Title, MaxTitleLength, true)
	validateText(&c, "description", g.Description, MaxDescriptionLength, false)
	validateText(&c, "unit", g.Unit, MaxTitleLength, false)
	if g.Category != "" && !g.Category.Valid() {
		c.Add(&ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", g.Category)})
	}
	if g.CheckInFrequency != "" {
		c.Add(ValidateEnum("check_in_frequency", string(g.CheckInFrequency), []string{
			string(types.CheckInDaily), string(types.CheckInWeekly),
			string(types.CheckInBiweekly), string(types.CheckInMonthly),
		}))
	}
	c.Add(validateFinite("target_value", g.TargetValue))
	c.Add(validateFinite("current_value", g.CurrentValue))
	return c.Errors()
}

// ValidateCheckIn validates the body of POST /goals/{id}/checkins.
func ValidateCheckIn(req types.CheckInRequest) []ValidationError {
	var c Collector
	c.Add(validateFinite("value", req.Value))
	validateText(&c, "notes", req.Notes, MaxNotesLength, false)
	if req.Mood != nil {
		c.Add(ValidateRange("mood", float64(*req.Mood), 1, 10))
	}
	return c.Errors()
}

// ValidateSnooze validates the body of POST /alerts/{id}/snooze. Zero means
// the configured default.
func ValidateSnooze(req types.SnoozeRequest) []ValidationError {
	var c Collector
	c.Add(ValidateRange("minutes", float64(req.Minutes), 0, MaxSnoozeMinutes))
	return c.Errors()
}

// ValidateSchedulePatch validates the body of PATCH /schedules/{id}.
func ValidateSchedulePatch(p types.SchedulePatch) []ValidationError {
	var c Collector
	if p.Enabled == nil && p.TimeOfDay == nil {
		c.Add(&ValidationError{Field: "body", Message: "must set enabled or time_of_day"})
	}
	if p.TimeOfDay != nil {
		if _, err := types.ParseTimeOfDay(*p.TimeOfDay); err != nil {
			c.Add(&ValidationError{Field: "time_of_day", Message: "must be a valid HH:MM time"})
		}
	}
	return c.Errors()
}

func validateFinite(field string, v float64) *ValidationError {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Message: "must be a finite number"}
	}
	return nil
}
