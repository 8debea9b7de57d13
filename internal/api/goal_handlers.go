package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/hyperengineering/pulse/internal/validation"
)

// ListGoals handles GET /api/v1/goals
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	all, err := h.goals.List(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if all == nil {
		all = []types.HealthGoal{}
	}
	writeJSON(w, http.StatusOK, all)
}

// CreateGoal handles POST /api/v1/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req types.NewHealthGoal
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateNewGoal(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	goal, err := h.goals.CreateGoal(r.Context(), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// GetGoal handles GET /api/v1/goals/{id}
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.goals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// DeleteGoal handles DELETE /api/v1/goals/{id}. Deleting an unknown goal
// succeeds.
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.goals.DeleteGoal(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordCheckIn handles POST /api/v1/goals/{id}/checkins
func (h *Handler) RecordCheckIn(w http.ResponseWriter, r *http.Request) {
	var req types.CheckInRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateCheckIn(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	checkIn, err := h.goals.RecordCheckIn(r.Context(), chi.URLParam(r, "id"), req.Value, req.Notes, req.Mood)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkIn)
}

// ListCheckIns handles GET /api/v1/goals/{id}/checkins
func (h *Handler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.goals.Get(r.Context(), id); err != nil {
		MapStoreError(w, r, err)
		return
	}
	checkIns, err := h.goals.CheckIns(r.Context(), id)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkIns)
}

// PauseGoal handles POST /api/v1/goals/{id}/pause
func (h *Handler) PauseGoal(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// ResumeGoal handles POST /api/v1/goals/{id}/resume
func (h *Handler) ResumeGoal(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *Handler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	goal, err := h.goals.SetPaused(r.Context(), chi.URLParam(r, "id"), paused)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// RefreshGoals handles POST /api/v1/goals/refresh
func (h *Handler) RefreshGoals(w http.ResponseWriter, r *http.Request) {
	changed, err := h.goals.RefreshStatuses(r.Context(), h.engine.Now())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if changed == nil {
		changed = []types.HealthGoal{}
	}
	writeJSON(w, http.StatusOK, types.GoalRefreshResponse{Changed: changed})
}
