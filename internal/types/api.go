package types

import "time"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	RemindersOn     bool   `json:"reminders_enabled"`
	ScheduleCount   int    `json:"schedule_count"`
	UnreadAlerts    int    `json:"unread_alerts"`
	ActiveGoalCount int    `json:"active_goal_count"`
}

// PreferencesPatch is a partial update of Preferences. Nil fields are left
// unchanged.
type PreferencesPatch struct {
	Enabled         *bool            `json:"enabled,omitempty"`
	SnoozeMinutes   *int             `json:"snooze_minutes,omitempty"`
	MaxAlertsPerDay *int             `json:"max_alerts_per_day,omitempty"`
	Schedules       *[]AlertSchedule `json:"schedules,omitempty"`
}

// SchedulePatch updates the enabled flag and/or time of one schedule.
type SchedulePatch struct {
	Enabled   *bool   `json:"enabled,omitempty"`
	TimeOfDay *string `json:"time_of_day,omitempty"`
}

// AdHocReminder is the input for placing a one-shot reminder on a date.
type AdHocReminder struct {
	Owner       *OwnerRef    `json:"owner,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Date        Date         `json:"date"`
	TimeOfDay   TimeOfDay    `json:"time_of_day"`
	Type        ScheduleType `json:"type"`
}

// SnoozeRequest is the body of POST /alerts/{id}/snooze.
type SnoozeRequest struct {
	Minutes int `json:"minutes"`
}

// CheckInRequest is the body of POST /goals/{id}/checkins.
type CheckInRequest struct {
	Value float64 `json:"value"`
	Notes string  `json:"notes,omitempty"`
	Mood  *int    `json:"mood,omitempty"`
}

// TickResponse lists the alerts produced by one sweep.
type TickResponse struct {
	Alerts []Alert   `json:"alerts"`
	At     time.Time `json:"at"`
}

// CalendarDay lists the schedules due on one date.
type CalendarDay struct {
	Date      Date            `json:"date"`
	Schedules []AlertSchedule `json:"schedules"`
}

// AlertListResponse is the body of GET /alerts.
type AlertListResponse struct {
	Alerts []Alert `json:"alerts"`
	Unread int     `json:"unread"`
}

// MarkReadResponse reports how many alerts POST /alerts/read-all flipped.
type MarkReadResponse struct {
	Marked int `json:"marked"`
}

// GoalRefreshResponse lists the goals whose status changed.
type GoalRefreshResponse struct {
	Changed []HealthGoal `json:"changed"`
}
