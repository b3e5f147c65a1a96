package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.Hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Agents
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{id}", h.GetAgent)

		// Executions
		r.Post("/agents/{id}/execute", h.ExecuteAgent)
		r.Post("/agents/{id}/execute/stream", h.StreamExecution)

		// Costs
		r.Get("/projects/{id}/costs", h.ProjectCost)

		// Execution history
		r.Get("/projects/{id}/executions", h.ListExecutions)
		r.Get("/projects/{id}/executions/{executionId}", h.GetExecution)
	})
}
