package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
)

// Dismiss marks one alert read. Unknown or already-read alerts are a no-op.
func (e *Engine) Dismiss(ctx context.Context, alertID string) error {
	return store.UpdateWithRetry(ctx, e.store, func(tx store.Tx) error {
		log, err := tx.Alerts()
		if err != nil {
			return err
		}
		for i := range log {
			if log[i].ID == alertID {
				if log[i].Read {
					return nil
				}
				log[i].Read = true
				return tx.SetAlerts(log)
			}
		}
		slog.Debug("dismiss of unknown alert ignored",
			"component", "reminder",
			"alert_id", alertID,
		)
		return nil
	})
}

// MarkAllRead dismisses every unread alert and returns how many changed.
func (e *Engine) MarkAllRead(ctx context.Context) (int, error) {
	var changed int
	err := store.UpdateWithRetry(ctx, e.store, func(tx store.Tx) error {
		changed = 0
		log, err := tx.Alerts()
		if err != nil {
			return err
		}
		for i := range log {
			if !log[i].Read {
				log[i].Read = true
				changed++
			}
		}
		if changed == 0 {
			return nil
		}
		return tx.SetAlerts(log)
	})
	return changed, err
}

// Snooze dismisses an alert and places a one-shot reminder minutes from now
// with the same type, title and description. minutes <= 0 uses the
// preference default. Snoozing the same alert again replaces the earlier
// snooze reminder. Unknown alerts are a no-op and return nil.
//
// Snoozed reminders count against the daily cap like any other alert.
func (e *Engine) Snooze(ctx context.Context, alertID string, minutes int) (*types.AlertSchedule, error) {
	now := e.now()

	var placed *types.AlertSchedule
	err := store.UpdateWithRetry(ctx, e.store, func(tx store.Tx) error {
		placed = nil

		log, err := tx.Alerts()
		if err != nil {
			return err
		}
		idx := -1
		for i := range log {
			if log[i].ID == alertID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}

		prefs, err := tx.Preferences()
		if err != nil {
			return err
		}
		if minutes <= 0 {
			minutes = prefs.SnoozeMinutes
		}

		alert := log[idx]
		at := now.Add(time.Duration(minutes) * time.Minute)
		owner := types.OwnerRef{Kind: types.OwnerSnooze, ID: alert.ID}
		s := types.AlertSchedule{
			ID:           e.newID(),
			Type:         alert.Type,
			Title:        alert.Title,
			Description:  alert.Description,
			TimeOfDay:    types.TimeOfDay{Hour: at.Hour(), Minute: at.Minute()},
			Enabled:      true,
			Recurrence:   types.Custom{Date: types.DateOf(at)},
			LinkedNoteID: alert.LinkedNoteID,
			Owner:        &owner,
		}
		if !s.Type.Valid() {
			s.Type = types.TypeCustom
		}

		schedules := make([]types.AlertSchedule, 0, len(prefs.Schedules)+1)
		for _, existing := range prefs.Schedules {
			if existing.Owner != nil && *existing.Owner == owner {
				continue
			}
			schedules = append(schedules, existing)
		}
		prefs.Schedules = append(schedules, s)
		if err := tx.SetPreferences(prefs); err != nil {
			return err
		}

		if !log[idx].Read {
			log[idx].Read = true
			if err := tx.SetAlerts(log); err != nil {
				return err
			}
		}
		placed = &s
		return nil
	})
	if err != nil {
		return nil, err
	}

	if placed != nil {
		slog.Info("alert snoozed",
			"component", "reminder",
			"alert_id", alertID,
			"minutes", minutes,
			"schedule_id", placed.ID,
		)
	}
	return placed, nil
}

// InjectAdHocReminder appends a one-shot reminder for r.Date at r.TimeOfDay.
func (e *Engine) InjectAdHocReminder(ctx context.Context, r types.AdHocReminder) (types.AlertSchedule, error) {
	var s types.AlertSchedule
	err := store.UpdateWithRetry(ctx, e.store, func(tx store.Tx) error {
		var err error
		s, err = Inject(tx, r, e.newID())
		return err
	})
	return s, err
}

// Inject appends a one-shot custom schedule built from r inside an existing
// transaction. Callers that persist other records alongside the reminder use
// this instead of InjectAdHocReminder.
func Inject(tx store.Tx, r types.AdHocReminder, id string) (types.AlertSchedule, error) {
	if strings.TrimSpace(r.Title) == "" {
		return types.AlertSchedule{}, fmt.Errorf("%w: title is required", ErrInvalidReminder)
	}
	if r.Date.IsZero() {
		return types.AlertSchedule{}, fmt.Errorf("%w: date is required", ErrInvalidReminder)
	}
	if !r.TimeOfDay.Valid() {
		return types.AlertSchedule{}, fmt.Errorf("%w: time of day %v out of range", ErrInvalidReminder, r.TimeOfDay)
	}
	typ := r.Type
	if typ == "" {
		typ = types.TypeCustom
	}
	if !typ.Valid() {
		return types.AlertSchedule{}, fmt.Errorf("%w: unknown type %q", ErrInvalidReminder, typ)
	}

	s := types.AlertSchedule{
		ID:          id,
		Type:        typ,
		Title:       r.Title,
		Description: r.Description,
		TimeOfDay:   r.TimeOfDay,
		Enabled:     true,
		Recurrence:  types.Custom{Date: r.Date},
	}
	if r.Owner != nil {
		owner := *r.Owner
		s.Owner = &owner
		if owner.Kind == types.OwnerNote {
			s.LinkedNoteID = owner.ID
		}
	}

	prefs, err := tx.Preferences()
	if err != nil {
		return types.AlertSchedule{}, err
	}
	prefs.Schedules = append(prefs.Schedules, s)
	if err := tx.SetPreferences(prefs); err != nil {
		return types.AlertSchedule{}, err
	}
	return s, nil
}

// RemoveOwned deletes every schedule owned by owner inside an existing
// transaction and returns how many were removed.
func RemoveOwned(tx store.Tx, owner types.OwnerRef) (int, error) {
	prefs, err := tx.Preferences()
	if err != nil {
		return 0, err
	}
	kept := make([]types.AlertSchedule, 0, len(prefs.Schedules))
	for _, s := range prefs.Schedules {
		if s.Owner != nil && *s.Owner == owner {
			continue
		}
		kept = append(kept, s)
	}
	removed := len(prefs.Schedules) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	prefs.Schedules = kept
	return removed, tx.SetPreferences(prefs)
}

// UpdatePreferences applies a partial update and returns the result.
// Out-of-range numbers are clamped rather than rejected.
func (e *Engine) UpdatePreferences(ctx context.Context, patch types.PreferencesPatch) (types.Preferences, error) {
	if patch.Schedules != nil {
		if err := validateSchedules(*patch.Schedules); err != nil {
			return types.Preferences{}, err
		}
	}

	var prefs types.Preferences
	err := store.UpdateWithRetry(ctx, e.store, func(tx store.Tx) error {
		var err error
		prefs, err = tx.Preferences()
		if err != nil {
			return err
		}
		if patch.Enabled != nil {
			prefs.Enabled = *patch.Enabled
		}
		if patch.SnoozeMinutes != nil {
			prefs.SnoozeMinutes = *patch.SnoozeMinutes
		}
		if patch.MaxAlertsPerDay != nil {
			prefs.MaxAlertsPerDay = *patch.MaxAlertsPerDay
		}
		if patch.Schedules != nil {
			prefs.Schedules = append([]types.AlertSchedule(nil), (*patch.Schedules)...)
		}
		prefs.Normalize()
		return tx.SetPreferences(prefs)
	})
	return prefs, err
}

func validateSchedules(schedules []types.AlertSchedule) error {
	seen := make(map[string]struct{}, len(schedules))
	for _, s := range schedules {
		if s.ID == "" {
			return fmt.Errorf("%w: schedule without id", ErrInvalidReminder)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate schedule id %q", ErrInvalidReminder, s.ID)
		}
		seen[s.ID] = struct{}{}
		if !s.Type.Valid() {
			return fmt.Errorf("%w: schedule %s has unknown type %q", ErrInvalidReminder, s.ID, s.Type)
		}
		if !s.TimeOfDay.Valid() {
			return fmt.Errorf("%w: schedule %s time out of range", ErrInvalidReminder, s.ID)
		}
		if s.Recurrence == nil {
			return fmt.Errorf("%w: schedule %s has no recurrence", ErrInvalidReminder, s.ID)
		}
	}
	return nil
}

// ToggleSchedule enables or disables one schedule. It returns nil when the
// schedule does not exist.
func (e *Engine) ToggleSchedule(ctx context.Context, id string, enabled bool) (*types.AlertSchedule, error) {
	return e.PatchSchedule(ctx, id, &enabled, nil)
}

// SetScheduleTime changes the time of day of one schedule. It returns nil
// when the schedule does not exist.
func (e *Engine) SetScheduleTime(ctx context.Context, id string, tod types.TimeOfDay) (*types.AlertSchedule, error) {
	return e.PatchSchedule(ctx, id, nil, &tod)
}

// PatchSchedule applies the non-nil fields to one schedule in a single
// transaction. It returns nil when the schedule does not exist.
func (e *Engine) PatchSchedule(ctx context.Context, id string, enabled *bool, tod *types.TimeOfDay) (*types.AlertSchedule, error) {
	if tod != nil && !tod.Valid() {
		return nil, fmt.Errorf("%w: time of day %v out of range", ErrInvalidReminder, *tod)
	}
	return e.mutateSchedule(ctx, id, func(s *types.AlertSchedule) {
		if enabled != nil {
			s.Enabled = *enabled
		}
		if tod != nil {
			s.TimeOfDay = *tod
		}
	})
}

func (e *Engine) mutateSchedule(ctx context.Context, id string, fn func(*types.AlertSchedule)) (*types.AlertSchedule, error) {
	var out *types.AlertSchedule
	err := store.UpdateWithRetry(ctx, e.store, func(tx store.Tx) error {
		out = nil
		prefs, err := tx.Preferences()
		if err != nil {
			return err
		}
		i := prefs.ScheduleIndex(id)
		if i < 0 {
			return nil
		}
		fn(&prefs.Schedules[i])
		s := prefs.Schedules[i]
		out = &s
		return tx.SetPreferences(prefs)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
