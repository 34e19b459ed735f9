package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Agent side: open a decision point (suspends until decided)
		r.Post("/checkpoints", h.CreateCheckpoint)
		r.Post("/score", h.ScoreConfidence)

		// Operator side: inspect and complete waiting checkpoints
		r.Get("/checkpoints", h.ListCheckpoints)
		r.Get("/checkpoints/stats", h.CheckpointStats)
		r.Post("/checkpoints/sweep", h.SweepCheckpoints)
		r.Get("/checkpoints/{id}", h.GetCheckpoint)
		r.Post("/checkpoints/{id}/resolve", h.ResolveCheckpoint)
		r.Post("/checkpoints/{id}/cancel", h.CancelCheckpoint)

		// Analytics
		r.Get("/calibration/stats", h.CalibrationStats)
		r.Get("/calibration/suggestion", h.CalibrationSuggestion)
	})
}
