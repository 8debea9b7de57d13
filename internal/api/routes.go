package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Method("GET", "/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)

		// Protected routes (auth required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))

			r.Post("/tick", h.Tick)

			r.Get("/alerts", h.ListAlerts)
			r.Post("/alerts/read-all", h.MarkAllRead)
			r.Post("/alerts/{id}/dismiss", h.DismissAlert)
			r.Post("/alerts/{id}/snooze", h.SnoozeAlert)

			r.Get("/preferences", h.GetPreferences)
			r.Patch("/preferences", h.PatchPreferences)
			r.Patch("/schedules/{id}", h.PatchSchedule)
			r.Post("/reminders", h.CreateReminder)

			r.Get("/calendar", h.Calendar)
			r.Get("/calendar/{date}", h.CalendarDay)

			r.Get("/goals", h.ListGoals)
			r.Post("/goals", h.CreateGoal)
			r.Post("/goals/refresh", h.RefreshGoals)
			r.Get("/goals/{id}", h.GetGoal)
			r.Delete("/goals/{id}", h.DeleteGoal)
			r.Get("/goals/{id}/checkins", h.ListCheckIns)
			r.Post("/goals/{id}/checkins", h.RecordCheckIn)
			r.Post("/goals/{id}/pause", h.PauseGoal)
			r.Post("/goals/{id}/resume", h.ResumeGoal)
		})
	})

	return r
}
