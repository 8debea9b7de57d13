package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hyperengineering/pulse/internal/types"
)

// kv is the raw versioned key-value layer a backend provides inside one
// transaction. A missing key reads as (nil, 0, nil). put succeeds only when
// the stored version still equals expected (0 = key must not exist).
type kv interface {
	get(key string) ([]byte, int64, error)
	put(key string, value []byte, expected int64) error
}

// recordTx implements Tx over a kv, remembering the version of every record
// it read so writes can detect concurrent modification.
type recordTx struct {
	kv       kv
	versions map[string]int64
	readOnly bool
}

func newRecordTx(k kv, readOnly bool) *recordTx {
	return &recordTx{kv: k, versions: make(map[string]int64), readOnly: readOnly}
}

func (t *recordTx) load(key string) ([]byte, error) {
	raw, version, err := t.kv.get(key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if _, seen := t.versions[key]; !seen {
		t.versions[key] = version
	}
	return raw, nil
}

func (t *recordTx) store(key string, v any) error {
	if t.readOnly {
		return ErrReadOnly
	}
	expected, seen := t.versions[key]
	if !seen {
		_, version, err := t.kv.get(key)
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		expected = version
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := t.kv.put(key, data, expected); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	t.versions[key] = expected + 1
	return nil
}

func (t *recordTx) Preferences() (types.Preferences, error) {
	raw, err := t.load(KeyPreferences)
	if err != nil {
		return types.Preferences{}, err
	}
	return decodePreferences(raw), nil
}

func (t *recordTx) SetPreferences(p types.Preferences) error {
	p.Normalize()
	return t.store(KeyPreferences, p)
}

func (t *recordTx) Alerts() ([]types.Alert, error) {
	raw, err := t.load(KeyAlerts)
	if err != nil {
		return nil, err
	}
	return decodeList(KeyAlerts, raw, validateAlert), nil
}

func (t *recordTx) SetAlerts(alerts []types.Alert) error {
	return t.store(KeyAlerts, nonNil(alerts))
}

func (t *recordTx) Goals() ([]types.HealthGoal, error) {
	raw, err := t.load(KeyGoals)
	if err != nil {
		return nil, err
	}
	return decodeList(KeyGoals, raw, validateGoal), nil
}

func (t *recordTx) SetGoals(goals []types.HealthGoal) error {
	return t.store(KeyGoals, nonNil(goals))
}

func (t *recordTx) CheckIns() ([]types.GoalCheckIn, error) {
	raw, err := t.load(KeyCheckIns)
	if err != nil {
		return nil, err
	}
	return decodeList(KeyCheckIns, raw, validateCheckIn), nil
}

func (t *recordTx) SetCheckIns(checkIns []types.GoalCheckIn) error {
	return t.store(KeyCheckIns, nonNil(checkIns))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// preferencesJSON defers schedule decoding so one bad schedule does not
// discard the whole record.
type preferencesJSON struct {
	Enabled         bool              `json:"enabled"`
	Schedules       []json.RawMessage `json:"schedules"`
	SnoozeMinutes   int               `json:"snooze_minutes"`
	MaxAlertsPerDay int               `json:"max_alerts_per_day"`
}

func decodePreferences(raw []byte) types.Preferences {
	if raw == nil {
		return types.DefaultPreferences()
	}

	var in preferencesJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		slog.Warn("corrupt record replaced with defaults",
			"component", "store",
			"key", KeyPreferences,
			"error", err,
		)
		return types.DefaultPreferences()
	}

	p := types.Preferences{
		Enabled:         in.Enabled,
		SnoozeMinutes:   in.SnoozeMinutes,
		MaxAlertsPerDay: in.MaxAlertsPerDay,
		Schedules:       make([]types.AlertSchedule, 0, len(in.Schedules)),
	}
	for i, item := range in.Schedules {
		var s types.AlertSchedule
		if err := json.Unmarshal(item, &s); err != nil {
			slog.Warn("corrupt schedule dropped",
				"component", "store",
				"key", KeyPreferences,
				"index", i,
				"error", err,
			)
			continue
		}
		p.Schedules = append(p.Schedules, s)
	}
	if p.Normalize() {
		slog.Warn("preferences clamped to safe values",
			"component", "store",
			"max_alerts_per_day", p.MaxAlertsPerDay,
			"snooze_minutes", p.SnoozeMinutes,
		)
	}
	return p
}

// decodeList decodes a JSON array entry by entry, dropping entries that fail
// to decode or validate. An unreadable record decodes as an empty list.
func decodeList[T any](key string, raw []byte, validate func(T) error) []T {
	out := []T{}
	if raw == nil {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("corrupt record replaced with empty list",
			"component", "store",
			"key", key,
			"error", err,
		)
		return out
	}

	for i, item := range items {
		var v T
		err := json.Unmarshal(item, &v)
		if err == nil {
			err = validate(v)
		}
		if err != nil {
			slog.Warn("corrupt entry dropped",
				"component", "store",
				"key", key,
				"index", i,
				"error", err,
			)
			continue
		}
		out = append(out, v)
	}
	return out
}

func validateAlert(a types.Alert) error {
	if a.ID == "" {
		return fmt.Errorf("alert without id")
	}
	if a.CreatedAt.IsZero() {
		return fmt.Errorf("alert %s without created_at", a.ID)
	}
	switch a.Severity {
	case types.SeverityLow, types.SeverityMedium, types.SeverityHigh:
		return nil
	}
	return fmt.Errorf("alert %s: unknown severity %q", a.ID, a.Severity)
}

func validateGoal(g types.HealthGoal) error {
	if g.ID == "" {
		return fmt.Errorf("goal without id")
	}
	if !g.Status.Valid() {
		return fmt.Errorf("goal %s: unknown status %q", g.ID, g.Status)
	}
	if !g.CheckInFrequency.Valid() {
		return fmt.Errorf("goal %s: unknown check-in frequency %q", g.ID, g.CheckInFrequency)
	}
	if !g.Category.Valid() {
		return fmt.Errorf("goal %s: unknown category %q", g.ID, g.Category)
	}
	return nil
}

func validateCheckIn(c types.GoalCheckIn) error {
	if c.ID == "" || c.GoalID == "" {
		return fmt.Errorf("check-in without id or goal id")
	}
	return nil
}
