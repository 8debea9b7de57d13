package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/pulse/internal/goals"
	"github.com/hyperengineering/pulse/internal/metrics"
	"github.com/hyperengineering/pulse/internal/reminder"
	"github.com/hyperengineering/pulse/internal/types"
	"github.com/hyperengineering/pulse/internal/validation"
)

// defaultCalendarDays is the span of GET /calendar when to is omitted.
const defaultCalendarDays = 7

// Handler implements the API handlers
type Handler struct {
	engine  *reminder.Engine
	goals   *goals.Scheduler
	metrics *metrics.Metrics
	apiKey  string
	version string
}

// NewHandler creates a Handler over the reminder engine and goal scheduler.
// A nil metrics disables the /metrics endpoint.
func NewHandler(e *reminder.Engine, g *goals.Scheduler, m *metrics.Metrics, apiKey, version string) *Handler {
	return &Handler{
		engine:  e,
		goals:   g,
		metrics: m,
		apiKey:  apiKey,
		version: version,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "component", "api", "error", err)
	}
}

// decodeJSON decodes the request body into v. An empty body is accepted when
// allowEmpty is set. On failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
	return false
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.engine.Preferences(r.Context())
	if err != nil {
		WriteProblem(w, r, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	unread, err := h.engine.Alerts(r.Context(), true)
	if err != nil {
		WriteProblem(w, r, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	all, err := h.goals.List(r.Context())
	if err != nil {
		WriteProblem(w, r, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	active := 0
	for _, g := range all {
		if g.Status == types.GoalActive || g.Status == types.GoalOverdue {
			active++
		}
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:          "healthy",
		Version:         h.version,
		RemindersOn:     prefs.Enabled,
		ScheduleCount:   len(prefs.Schedules),
		UnreadAlerts:    len(unread),
		ActiveGoalCount: active,
	})
}

// Tick handles POST /api/v1/tick. An optional RFC 3339 "at" query parameter
// evaluates the sweep at that instant instead of the current time.
func (h *Handler) Tick(w http.ResponseWriter, r *http.Request) {
	at := h.engine.Now()
	if v := r.URL.Query().Get("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid at: %s", err.Error()))
			return
		}
		at = parsed
	}

	fired, err := h.engine.Tick(r.Context(), at)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if fired == nil {
		fired = []types.Alert{}
	}
	writeJSON(w, http.StatusOK, types.TickResponse{Alerts: fired, At: at})
}

// ListAlerts handles GET /api/v1/alerts?unread=true
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	unreadOnly := false
	if v := r.URL.Query().Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "unread must be a boolean")
			return
		}
		unreadOnly = b
	}

	alerts, err := h.engine.Alerts(r.Context(), unreadOnly)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	unread := 0
	for _, a := range alerts {
		if !a.Read {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, types.AlertListResponse{Alerts: alerts, Unread: unread})
}

// DismissAlert handles POST /api/v1/alerts/{id}/dismiss. Unknown and
// already-read alerts succeed without change.
func (h *Handler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Dismiss(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/alerts/read-all
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.MarkAllRead(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.MarkReadResponse{Marked: n})
}

// SnoozeAlert handles POST /api/v1/alerts/{id}/snooze. The body is optional;
// zero minutes uses the configured snooze duration.
func (h *Handler) SnoozeAlert(w http.ResponseWriter, r *http.Request) {
	var req types.SnoozeRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if errs := validation.ValidateSnooze(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	id := chi.URLParam(r, "id")
	sched, err := h.engine.Snooze(r.Context(), id, req.Minutes)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if sched == nil {
		WriteProblem(w, r, http.StatusNotFound, fmt.Sprintf("Alert %s not found", id))
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

// GetPreferences handles GET /api/v1/preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.engine.Preferences(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// PatchPreferences handles PATCH /api/v1/preferences
func (h *Handler) PatchPreferences(w http.ResponseWriter, r *http.Request) {
	var patch types.PreferencesPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	prefs, err := h.engine.UpdatePreferences(r.Context(), patch)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// PatchSchedule handles PATCH /api/v1/schedules/{id}
func (h *Handler) PatchSchedule(w http.ResponseWriter, r *http.Request) {
	var patch types.SchedulePatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	if errs := validation.ValidateSchedulePatch(patch); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	id := chi.URLParam(r, "id")
	var tod *types.TimeOfDay
	if patch.TimeOfDay != nil {
		t, _ := types.ParseTimeOfDay(*patch.TimeOfDay)
		tod = &t
	}
	sched, err := h.engine.PatchSchedule(r.Context(), id, patch.Enabled, tod)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if sched == nil {
		WriteProblem(w, r, http.StatusNotFound, fmt.Sprintf("Schedule %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// CreateReminder handles POST /api/v1/reminders
func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var req types.AdHocReminder
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateAdHocReminder(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	sched, err := h.engine.InjectAdHocReminder(r.Context(), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

// Calendar handles GET /api/v1/calendar?from=YYYY-MM-DD&to=YYYY-MM-DD.
// from defaults to today and to defaults to a week after from.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := types.DateOf(h.engine.Now())
	if v := q.Get("from"); v != "" {
		d, err := types.ParseDate(v)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, err.Error())
			return
		}
		from = d
	}
	to := from.AddDays(defaultCalendarDays - 1)
	if v := q.Get("to"); v != "" {
		d, err := types.ParseDate(v)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, err.Error())
			return
		}
		to = d
	}

	days, err := h.engine.Calendar(r.Context(), from, to)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// CalendarDay handles GET /api/v1/calendar/{date}
func (h *Handler) CalendarDay(w http.ResponseWriter, r *http.Request) {
	date, err := types.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	due, err := h.engine.DueOn(r.Context(), date)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if due == nil {
		due = []types.AlertSchedule{}
	}
	writeJSON(w, http.StatusOK, types.CalendarDay{Date: date, Schedules: due})
}
