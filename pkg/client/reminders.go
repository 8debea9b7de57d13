package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
)

// Health returns the server health summary. No API key is required.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	var out types.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tick runs one trigger sweep. A zero at uses the server's clock.
func (c *Client) Tick(ctx context.Context, at time.Time) (*types.TickResponse, error) {
	path := "/api/v1/tick"
	if !at.IsZero() {
		path += "?at=" + url.QueryEscape(at.Format(time.RFC3339))
	}
	var out types.TickResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Alerts lists delivered alerts newest first.
func (c *Client) Alerts(ctx context.Context, unreadOnly bool) (*types.AlertListResponse, error) {
	path := "/api/v1/alerts"
	if unreadOnly {
		path += "?unread=true"
	}
	var out types.AlertListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dismiss marks one alert read.
func (c *Client) Dismiss(ctx context.Context, alertID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/alerts/"+url.PathEscape(alertID)+"/dismiss", nil, nil)
}

// MarkAllRead marks every alert read and returns how many changed.
func (c *Client) MarkAllRead(ctx context.Context) (int, error) {
	var out types.MarkReadResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/alerts/read-all", nil, &out); err != nil {
		return 0, err
	}
	return out.Marked, nil
}

// Snooze dismisses an alert and schedules it again minutes from now. Zero
// minutes uses the server's configured snooze duration.
func (c *Client) Snooze(ctx context.Context, alertID string, minutes int) (*types.AlertSchedule, error) {
	var out types.AlertSchedule
	err := c.do(ctx, http.MethodPost, "/api/v1/alerts/"+url.PathEscape(alertID)+"/snooze",
		types.SnoozeRequest{Minutes: minutes}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Preferences returns the reminder preferences.
func (c *Client) Preferences(ctx context.Context) (*types.Preferences, error) {
	var out types.Preferences
	if err := c.do(ctx, http.MethodGet, "/api/v1/preferences", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePreferences applies a partial preferences update.
func (c *Client) UpdatePreferences(ctx context.Context, patch types.PreferencesPatch) (*types.Preferences, error) {
	var out types.Preferences
	if err := c.do(ctx, http.MethodPatch, "/api/v1/preferences", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchSchedule toggles or retimes one schedule.
func (c *Client) PatchSchedule(ctx context.Context, id string, patch types.SchedulePatch) (*types.AlertSchedule, error) {
	var out types.AlertSchedule
	if err := c.do(ctx, http.MethodPatch, "/api/v1/schedules/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateReminder places a one-shot reminder on a date.
func (c *Client) CreateReminder(ctx context.Context, r types.AdHocReminder) (*types.AlertSchedule, error) {
	var out types.AlertSchedule
	if err := c.do(ctx, http.MethodPost, "/api/v1/reminders", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Calendar projects schedules over [from, to]. Zero dates use the server's
// defaults.
func (c *Client) Calendar(ctx context.Context, from, to types.Date) ([]types.CalendarDay, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.String())
	}
	if !to.IsZero() {
		q.Set("to", to.String())
	}
	path := "/api/v1/calendar"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []types.CalendarDay
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DueOn lists the schedules due on date.
func (c *Client) DueOn(ctx context.Context, date types.Date) ([]types.AlertSchedule, error) {
	var out types.CalendarDay
	if err := c.do(ctx, http.MethodGet, "/api/v1/calendar/"+date.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.Schedules, nil
}
