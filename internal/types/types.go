package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScheduleType classifies a reminder by health domain.
type ScheduleType string

const (
	TypeDiet       ScheduleType = "diet"
	TypeSleep      ScheduleType = "sleep"
	TypeMedication ScheduleType = "medication"
	TypeExercise   ScheduleType = "exercise"
	TypeMood       ScheduleType = "mood"
	TypeSymptoms   ScheduleType = "symptoms"
	TypeWater      ScheduleType = "water"
	TypeCustom     ScheduleType = "custom"
)

// ScheduleTypes lists every valid ScheduleType.
var ScheduleTypes = []ScheduleType{
	TypeDiet, TypeSleep, TypeMedication, TypeExercise,
	TypeMood, TypeSymptoms, TypeWater, TypeCustom,
}

// Valid reports whether t is a known schedule type.
func (t ScheduleType) Valid() bool {
	for _, v := range ScheduleTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Severity of a delivered alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// OwnerKind names what created an ad-hoc schedule.
type OwnerKind string

const (
	OwnerNote   OwnerKind = "note"
	OwnerGoal   OwnerKind = "goal"
	OwnerSnooze OwnerKind = "snooze"
)

// OwnerRef is a lookup back-reference from a schedule to whatever injected it.
type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

func (o OwnerRef) String() string {
	return string(o.Kind) + ":" + o.ID
}

// AlertSchedule is a persisted reminder definition.
type AlertSchedule struct {
	ID            string       `json:"id"`
	Type          ScheduleType `json:"type"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	TimeOfDay     TimeOfDay    `json:"time_of_day"`
	Enabled       bool         `json:"enabled"`
	Recurrence    Recurrence   `json:"-"`
	LastTriggered *Date        `json:"last_triggered,omitempty"`
	LinkedNoteID  string       `json:"linked_note_id,omitempty"`
	Owner         *OwnerRef    `json:"owner,omitempty"`
}

// scheduleAlias drops the custom methods so the default encoder handles the
// plain fields.
type scheduleAlias AlertSchedule

type scheduleJSON struct {
	scheduleAlias
	Recurrence json.RawMessage `json:"recurrence"`
}

// MarshalJSON encodes the schedule with its recurrence in tagged form.
func (s AlertSchedule) MarshalJSON() ([]byte, error) {
	rec := s.Recurrence
	if rec == nil {
		rec = Daily{}
	}
	raw, err := MarshalRecurrence(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(scheduleJSON{scheduleAlias: scheduleAlias(s), Recurrence: raw})
}

// UnmarshalJSON decodes and validates a schedule.
func (s *AlertSchedule) UnmarshalJSON(data []byte) error {
	var in scheduleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.ID == "" {
		return fmt.Errorf("schedule without id")
	}
	if !in.Type.Valid() {
		return fmt.Errorf("schedule %s: unknown type %q", in.ID, in.Type)
	}
	if len(in.Recurrence) == 0 {
		return fmt.Errorf("schedule %s: %w: missing", in.ID, ErrInvalidRecurrence)
	}
	rec, err := UnmarshalRecurrence(in.Recurrence)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", in.ID, err)
	}
	*s = AlertSchedule(in.scheduleAlias)
	s.Recurrence = rec
	return nil
}

// Preferences is the process-wide reminder configuration. It owns the
// ordered schedule list.
type Preferences struct {
	Enabled         bool            `json:"enabled"`
	Schedules       []AlertSchedule `json:"schedules"`
	SnoozeMinutes   int             `json:"snooze_minutes"`
	MaxAlertsPerDay int             `json:"max_alerts_per_day"`
}

const (
	DefaultSnoozeMinutes   = 10
	DefaultMaxAlertsPerDay = 10
)

// Normalize clamps out-of-range settings to safe values and reports whether
// anything changed.
func (p *Preferences) Normalize() bool {
	changed := false
	if p.MaxAlertsPerDay < 1 {
		p.MaxAlertsPerDay = 1
		changed = true
	}
	if p.SnoozeMinutes < 1 {
		p.SnoozeMinutes = DefaultSnoozeMinutes
		changed = true
	}
	if p.Schedules == nil {
		p.Schedules = []AlertSchedule{}
	}
	return changed
}

// ScheduleIndex returns the position of the schedule with the given id, or -1.
func (p *Preferences) ScheduleIndex(id string) int {
	for i := range p.Schedules {
		if p.Schedules[i].ID == id {
			return i
		}
	}
	return -1
}

// DefaultPreferences returns the built-in schedule set used for fresh stores
// and as the fallback for an unreadable preferences record. All built-in
// schedules start disabled.
func DefaultPreferences() Preferences {
	weekdays := Weekly{Weekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday}}
	return Preferences{
		Enabled:         true,
		SnoozeMinutes:   DefaultSnoozeMinutes,
		MaxAlertsPerDay: DefaultMaxAlertsPerDay,
		Schedules: []AlertSchedule{
			{ID: "default-medication", Type: TypeMedication, Title: "Medication", Description: "Time to take your medication.", TimeOfDay: TimeOfDay{Hour: 8}, Recurrence: Daily{}},
			{ID: "default-water", Type: TypeWater, Title: "Hydration", Description: "Drink a glass of water.", TimeOfDay: TimeOfDay{Hour: 10}, Recurrence: Daily{}},
			{ID: "default-diet", Type: TypeDiet, Title: "Meal log", Description: "Log what you ate for lunch.", TimeOfDay: TimeOfDay{Hour: 13}, Recurrence: Daily{}},
			{ID: "default-exercise", Type: TypeExercise, Title: "Exercise", Description: "Time for your workout.", TimeOfDay: TimeOfDay{Hour: 18}, Recurrence: weekdays},
			{ID: "default-mood", Type: TypeMood, Title: "Mood check", Description: "How are you feeling today?", TimeOfDay: TimeOfDay{Hour: 20}, Recurrence: Daily{}},
			{ID: "default-symptoms", Type: TypeSymptoms, Title: "Symptom journal", Description: "Note any symptoms you noticed today.", TimeOfDay: TimeOfDay{Hour: 21}, Recurrence: Daily{}},
			{ID: "default-sleep", Type: TypeSleep, Title: "Wind down", Description: "Start getting ready for bed.", TimeOfDay: TimeOfDay{Hour: 22}, Recurrence: Daily{}},
		},
	}
}

// Alert is a delivered, user-facing reminder instance.
type Alert struct {
	ID                string       `json:"id"`
	ScheduleID        string       `json:"schedule_id,omitempty"`
	Type              ScheduleType `json:"type"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Severity          Severity     `json:"severity"`
	Read              bool         `json:"read"`
	CreatedAt         time.Time    `json:"created_at"`
	LinkedCategoryRef string       `json:"linked_category_ref,omitempty"`
	LinkedNoteID      string       `json:"linked_note_id,omitempty"`
}

// CategoryMap maps a schedule type to the downstream specialist identifier
// used to decorate alerts.
type CategoryMap map[ScheduleType]string

// DefaultCategories is the built-in specialist table.
var DefaultCategories = CategoryMap{
	TypeDiet:       "nutritionist",
	TypeSleep:      "sleep-specialist",
	TypeMedication: "pharmacist",
	TypeExercise:   "fitness-coach",
	TypeMood:       "psychologist",
	TypeSymptoms:   "general-practitioner",
	TypeWater:      "nutritionist",
	TypeCustom:     "general-practitioner",
}

// Lookup returns the specialist for t, falling back to the custom entry.
func (m CategoryMap) Lookup(t ScheduleType) string {
	if ref, ok := m[t]; ok {
		return ref
	}
	return m[TypeCustom]
}

// GoalCategory classifies a health goal.
type GoalCategory string

const (
	GoalWeight       GoalCategory = "weight"
	GoalExercise     GoalCategory = "exercise"
	GoalNutrition    GoalCategory = "nutrition"
	GoalSleep        GoalCategory = "sleep"
	GoalHydration    GoalCategory = "hydration"
	GoalMentalHealth GoalCategory = "mental_health"
	GoalMedication   GoalCategory = "medication"
	GoalCustom       GoalCategory = "custom"
)

var goalCategories = []GoalCategory{
	GoalWeight, GoalExercise, GoalNutrition, GoalSleep,
	GoalHydration, GoalMentalHealth, GoalMedication, GoalCustom,
}

// Valid reports whether c is a known goal category.
func (c GoalCategory) Valid() bool {
	for _, v := range goalCategories {
		if c == v {
			return true
		}
	}
	return false
}

// ScheduleType returns the reminder type used for this category's check-ins.
func (c GoalCategory) ScheduleType() ScheduleType {
	switch c {
	case GoalExercise:
		return TypeExercise
	case GoalNutrition:
		return TypeDiet
	case GoalSleep:
		return TypeSleep
	case GoalHydration:
		return TypeWater
	case GoalMentalHealth:
		return TypeMood
	case GoalMedication:
		return TypeMedication
	default:
		return TypeCustom
	}
}

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalOverdue   GoalStatus = "overdue"
)

// Valid reports whether s is a known goal status.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalPaused, GoalOverdue:
		return true
	}
	return false
}

// CheckInFrequency is how often a goal asks for a check-in.
type CheckInFrequency string

const (
	CheckInDaily    CheckInFrequency = "daily"
	CheckInWeekly   CheckInFrequency = "weekly"
	CheckInBiweekly CheckInFrequency = "biweekly"
	CheckInMonthly  CheckInFrequency = "monthly"
)

// Valid reports whether f is a known check-in frequency.
func (f CheckInFrequency) Valid() bool {
	switch f {
	case CheckInDaily, CheckInWeekly, CheckInBiweekly, CheckInMonthly:
		return true
	}
	return false
}

// Next returns the calendar day one check-in period after d.
func (f CheckInFrequency) Next(d Date) Date {
	switch f {
	case CheckInWeekly:
		return d.AddDays(7)
	case CheckInBiweekly:
		return d.AddDays(14)
	case CheckInMonthly:
		return d.AddMonths(1)
	default:
		return d.AddDays(1)
	}
}

// Milestone is an intermediate target on a goal. Nothing populates it yet.
type Milestone struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	TargetValue float64    `json:"target_value"`
	AchievedAt  *time.Time `json:"achieved_at,omitempty"`
}

// HealthGoal is a tracked target value with periodic check-ins.
type HealthGoal struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Category         GoalCategory     `json:"category"`
	TargetValue      float64          `json:"target_value"`
	CurrentValue     float64          `json:"current_value"`
	Unit             string           `json:"unit"`
	TargetDate       Date             `json:"target_date"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Status           GoalStatus       `json:"status"`
	CheckInFrequency CheckInFrequency `json:"check_in_frequency"`
	LastCheckIn      *time.Time       `json:"last_check_in,omitempty"`
	Progress         float64          `json:"progress"`
	Milestones       []Milestone      `json:"milestones"`
	Notes            []string         `json:"notes"`
}

// NewHealthGoal is the input for creating a goal (without generated fields).
type NewHealthGoal struct {
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Category         GoalCategory     `json:"category"`
	TargetValue      float64          `json:"target_value"`
	CurrentValue     float64          `json:"current_value"`
	Unit             string           `json:"unit"`
	TargetDate       Date             `json:"target_date"`
	CheckInFrequency CheckInFrequency `json:"check_in_frequency"`
}

// GoalCheckIn is an immutable progress log entry.
type GoalCheckIn struct {
	ID        string    `json:"id"`
	GoalID    string    `json:"goal_id"`
	Value     float64   `json:"value"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Mood      *int      `json:"mood,omitempty"`
}
