package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/pulse/internal/metrics"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
)

type mockArchiver struct {
	mu       sync.Mutex
	archived []types.Alert
	err      error
}

func (m *mockArchiver) Archive(_ context.Context, alerts []types.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived = append(m.archived, alerts...)
	return m.err
}

func newTestEngine(t *testing.T, now time.Time, opts ...Option) (*Engine, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	base := []Option{
		WithClock(func() time.Time { return now }),
		WithIDGenerator(seqIDs("id")),
	}
	return NewEngine(s, append(base, opts...)...), s
}

func setSchedules(t *testing.T, e *Engine, limit int, schedules ...types.AlertSchedule) {
	t.Helper()
	enabled := true
	_, err := e.UpdatePreferences(context.Background(), types.PreferencesPatch{
		Enabled:         &enabled,
		MaxAlertsPerDay: &limit,
		Schedules:       &schedules,
	})
	require.NoError(t, err)
}

func TestEngine_FreshStoreUsesDefaults(t *testing.T) {
	e, _ := newTestEngine(t, at(2024, time.March, 4, 23, 0))
	ctx := context.Background()

	prefs, err := e.Preferences(ctx)
	require.NoError(t, err)
	assert.Len(t, prefs.Schedules, 7)
	assert.Equal(t, types.DefaultMaxAlertsPerDay, prefs.MaxAlertsPerDay)

	alerts, err := e.Tick(ctx, at(2024, time.March, 4, 23, 0))
	require.NoError(t, err)
	assert.Empty(t, alerts, "built-in schedules start disabled")
}

func TestEngine_TickIsIdempotentWithinDay(t *testing.T) {
	now := at(2024, time.March, 4, 9, 0)
	e, _ := newTestEngine(t, now)
	ctx := context.Background()
	setSchedules(t, e, 10, daily("a", 8, 0))

	first, err := e.Tick(ctx, now)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := e.Tick(ctx, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, second)

	alerts, err := e.Alerts(ctx, false)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	next, err := e.Tick(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, next, 1, "fires again the next day")
}

func TestEngine_FutureTickDoesNotSuppressLaterDays(t *testing.T) {
	now := at(2024, time.March, 4, 9, 0)
	e, _ := newTestEngine(t, now)
	ctx := context.Background()
	setSchedules(t, e, 10, daily("a", 8, 0))

	ahead, err := e.Tick(ctx, now.AddDate(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, ahead, 1)

	for d := 0; d < 3; d++ {
		fired, err := e.Tick(ctx, now.AddDate(0, 0, d))
		require.NoError(t, err)
		assert.Len(t, fired, 1, "day %d", d)

		again, err := e.Tick(ctx, now.AddDate(0, 0, d).Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, again, "day %d second tick", d)
	}
}

func TestEngine_TickHonorsCap(t *testing.T) {
	now := at(2024, time.March, 4, 12, 0)
	m := metrics.New()
	e, _ := newTestEngine(t, now, WithMetrics(m))
	ctx := context.Background()
	setSchedules(t, e, 2, daily("a", 8, 0), daily("b", 9, 0), daily("c", 10, 0))

	fired, err := e.Tick(ctx, now)
	require.NoError(t, err)
	require.Len(t, fired, 2)

	fired, err = e.Tick(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, fired, "cap reached for today")

	prefs, err := e.Preferences(ctx)
	require.NoError(t, err)
	assert.Nil(t, prefs.Schedules[2].LastTriggered)
}

func TestEngine_TickDisabledWritesNothing(t *testing.T) {
	now := at(2024, time.March, 4, 12, 0)
	e, s := newTestEngine(t, now)
	ctx := context.Background()
	setSchedules(t, e, 10, daily("a", 8, 0))

	off := false
	_, err := e.UpdatePreferences(ctx, types.PreferencesPatch{Enabled: &off})
	require.NoError(t, err)
	before := string(s.Raw(store.KeyPreferences))

	fired, err := e.Tick(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, fired)
	assert.Equal(t, before, string(s.Raw(store.KeyPreferences)))
	assert.Nil(t, s.Raw(store.KeyAlerts))
}

func TestEngine_TickPrunesAndArchives(t *testing.T) {
	now := at(2024, time.April, 15, 12, 0)
	arch := &mockArchiver{}
	e, _ := newTestEngine(t, now, WithArchiver(arch), WithRetention(7*24*time.Hour))
	ctx := context.Background()
	setSchedules(t, e, 10, daily("a", 8, 0))

	_, err := e.Tick(ctx, at(2024, time.April, 1, 9, 0))
	require.NoError(t, err)
	_, err = e.MarkAllRead(ctx)
	require.NoError(t, err)

	fired, err := e.Tick(ctx, now)
	require.NoError(t, err)
	require.Len(t, fired, 1)

	require.Len(t, arch.archived, 1)
	assert.Equal(t, "a", arch.archived[0].ScheduleID)

	alerts, err := e.Alerts(ctx, false)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, now.Equal(alerts[0].CreatedAt))
}

func TestEngine_ArchiveFailureDoesNotFailTick(t *testing.T) {
	now := at(2024, time.April, 15, 12, 0)
	arch := &mockArchiver{err: errors.New("bucket unavailable")}
	e, _ := newTestEngine(t, now, WithArchiver(arch), WithRetention(time.Hour))
	ctx := context.Background()
	setSchedules(t, e, 10, daily("a", 8, 0))

	_, err := e.Tick(ctx, at(2024, time.April, 14, 9, 0))
	require.NoError(t, err)
	_, err = e.MarkAllRead(ctx)
	require.NoError(t, err)

	_, err = e.Tick(ctx, now)
	assert.NoError(t, err)
}

func TestEngine_DismissAndMarkAllRead(t *testing.T) {
	now := at(2024, time.March, 4, 12, 0)
	e, _ := newTestEngine(t, now)
	ctx := context.Background()
	setSchedules(t, e, 10, daily("a", 8, 0), daily("b", 9, 0), daily("c", 10, 0))

	fired, err := e.Tick(ctx, now)
	require.NoError(t, err)
	require.Len(t, fired, 3)

	require.NoError(t, e.Dismiss(ctx, fired[0].ID))
	require.NoError(t, e.Dismiss(ctx, fired[0].ID), "dismissing twice is a no-op")
	require.NoError(t, e.Dismiss(ctx, "missing"))

	unread, err := e.Alerts(ctx, true)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	n, err := e.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	unread, err = e.Alerts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestEngine_Snooze(t *testing.T) {
	now := at(2024, time.March, 4, 12, 0)
	e, _ := newTestEngine(t, now)
	ctx := context.Background()
	setSchedules(t, e, 10, daily("a", 8, 0))

	fired, err := e.Tick(ctx, now)
	require.NoError(t, err)
	require.Len(t, fired, 1)

	s, err := e.Snooze(ctx, fired[0].ID, 15)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, types.TimeOfDay{Hour: 12, Minute: 15}, s.TimeOfDay)
	assert.Equal(t, types.Custom{Date: types.DateOf(now)}, s.Recurrence)
	assert.Equal(t, fired[0].Title, s.Title)

	unread, err := e.Alerts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread, "snoozed alert is dismissed")

	again, err := e.Tick(ctx, now.Add(14*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, again)

	again, err = e.Tick(ctx, now.Add(15*time.Minute))
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, s.ID, again[0].ScheduleID)
}

func TestEngine_SnoozeDefaultsAndReplaces(t *testing.T) {
	now := at(2024, time.March, 4, 12, 0)
	e, _ := newTestEngine(t, now)
	ctx := context.Background()
	setSchedules(t, e, 10, daily("a", 8, 0))

	fired, err := e.Tick(ctx, now)
	require.NoError(t, err)

	first, err := e.Snooze(ctx, fired[0].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, types.TimeOfDay{Hour: 12, Minute: 10}, first.TimeOfDay)

	second, err := e.Snooze(ctx, fired[0].ID, 30)
	require.NoError(t, err)

	prefs, err := e.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, -1, prefs.ScheduleIndex(first.ID))
	assert.NotEqual(t, -1, prefs.ScheduleIndex(second.ID))
}

func TestEngine_SnoozeUnknownAlert(t *testing.T) {
	e, _ := newTestEngine(t, at(2024, time.March, 4, 12, 0))
	s, err := e.Snooze(context.Background(), "missing", 5)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestEngine_InjectAdHocReminder(t *testing.T) {
	now := at(2024, time.March, 4, 12, 0)
	e, _ := newTestEngine(t, now)
	ctx := context.Background()
	setSchedules(t, e, 10)

	date := types.Date{Year: 2024, Month: time.March, Day: 6}
	s, err := e.InjectAdHocReminder(ctx, types.AdHocReminder{
		Owner:     &types.OwnerRef{Kind: types.OwnerNote, ID: "note-7"},
		Title:     "Follow up with doctor",
		Date:      date,
		TimeOfDay: types.TimeOfDay{Hour: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, types.TypeCustom, s.Type)
	assert.Equal(t, "note-7", s.LinkedNoteID)
	assert.True(t, s.Enabled)

	due, err := e.DueOn(ctx, date)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, s.ID, due[0].ID)

	fired, err := e.Tick(ctx, at(2024, time.March, 6, 9, 0))
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, "note-7", fired[0].LinkedNoteID)

	_, err = e.Tick(ctx, at(2024, time.March, 7, 9, 0))
	require.NoError(t, err)
	prefs, err := e.Preferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, prefs.Schedules, "expired ad-hoc reminder is pruned")
}

func TestEngine_InjectRejectsInvalid(t *testing.T) {
	e, _ := newTestEngine(t, at(2024, time.March, 4, 12, 0))
	ctx := context.Background()
	date := types.Date{Year: 2024, Month: time.March, Day: 6}

	tests := []struct {
		name string
		r    types.AdHocReminder
	}{
		{"missing title", types.AdHocReminder{Date: date}},
		{"missing date", types.AdHocReminder{Title: "x"}},
		{"bad time", types.AdHocReminder{Title: "x", Date: date, TimeOfDay: types.TimeOfDay{Hour: 25}}},
		{"bad type", types.AdHocReminder{Title: "x", Date: date, Type: "yoga"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.InjectAdHocReminder(ctx, tt.r)
			assert.ErrorIs(t, err, ErrInvalidReminder)
		})
	}
}

func TestEngine_ToggleAndRetime(t *testing.T) {
	e, _ := newTestEngine(t, at(2024, time.March, 4, 12, 0))
	ctx := context.Background()

	s, err := e.ToggleSchedule(ctx, "default-water", true)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.Enabled)

	s, err = e.SetScheduleTime(ctx, "default-water", types.TimeOfDay{Hour: 11, Minute: 30})
	require.NoError(t, err)
	assert.Equal(t, types.TimeOfDay{Hour: 11, Minute: 30}, s.TimeOfDay)

	s, err = e.ToggleSchedule(ctx, "missing", true)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = e.SetScheduleTime(ctx, "default-water", types.TimeOfDay{Hour: 24})
	assert.ErrorIs(t, err, ErrInvalidReminder)
}

// countingStore counts write transactions.
type countingStore struct {
	store.Store
	updates int
}

func (c *countingStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	c.updates++
	return c.Store.Update(ctx, fn)
}

func TestEngine_PatchScheduleSingleTransaction(t *testing.T) {
	cs := &countingStore{Store: store.NewMemoryStore()}
	e := NewEngine(cs, WithClock(func() time.Time { return at(2024, time.March, 4, 12, 0) }))
	ctx := context.Background()

	on := true
	tod := types.TimeOfDay{Hour: 21, Minute: 30}
	s, err := e.PatchSchedule(ctx, "default-sleep", &on, &tod)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.Enabled)
	assert.Equal(t, tod, s.TimeOfDay)
	assert.Equal(t, 1, cs.updates)

	off := false
	_, err = e.PatchSchedule(ctx, "default-sleep", &off, &types.TimeOfDay{Hour: 25})
	assert.ErrorIs(t, err, ErrInvalidReminder)

	prefs, err := e.Preferences(ctx)
	require.NoError(t, err)
	i := prefs.ScheduleIndex("default-sleep")
	require.GreaterOrEqual(t, i, 0)
	assert.True(t, prefs.Schedules[i].Enabled, "rejected patch must not apply enabled")
	assert.Equal(t, tod, prefs.Schedules[i].TimeOfDay)
}

func TestEngine_UpdatePreferencesValidation(t *testing.T) {
	e, _ := newTestEngine(t, at(2024, time.March, 4, 12, 0))
	ctx := context.Background()

	dup := []types.AlertSchedule{daily("a", 8, 0), daily("a", 9, 0)}
	_, err := e.UpdatePreferences(ctx, types.PreferencesPatch{Schedules: &dup})
	assert.ErrorIs(t, err, ErrInvalidReminder)

	zero := 0
	prefs, err := e.UpdatePreferences(ctx, types.PreferencesPatch{MaxAlertsPerDay: &zero, SnoozeMinutes: &zero})
	require.NoError(t, err)
	assert.Equal(t, 1, prefs.MaxAlertsPerDay)
	assert.Equal(t, types.DefaultSnoozeMinutes, prefs.SnoozeMinutes)
}

func TestEngine_AlertsNewestFirst(t *testing.T) {
	e, _ := newTestEngine(t, at(2024, time.March, 4, 12, 0))
	ctx := context.Background()
	setSchedules(t, e, 10, daily("a", 8, 0))

	for d := 1; d <= 3; d++ {
		_, err := e.Tick(ctx, at(2024, time.March, d, 9, 0))
		require.NoError(t, err)
	}

	alerts, err := e.Alerts(ctx, false)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, 3, alerts[0].CreatedAt.Day())
	assert.Equal(t, 1, alerts[2].CreatedAt.Day())
}
