package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.Hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		// Agents (read-only; profiles come from the directory)
		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{id}", h.GetAgent)
		r.Get("/agents/{id}/tasks", h.ListAgentTasks)

		// Tasks
		r.Get("/tasks", h.ListTasks)
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks/{id}", h.GetTask)
		r.Put("/tasks/{id}", h.UpdateTask)
		r.Delete("/tasks/{id}", h.DeleteTask)

		// Task lifecycle
		r.Post("/tasks/{id}/assign", h.AssignTask)
		r.Post("/tasks/{id}/execute", h.ExecuteTask)
		r.Post("/tasks/{id}/handoff", h.HandoffTask)

		// Crews
		r.Get("/crews", h.ListCrews)
		r.Post("/crews", h.CreateCrew)
		r.Get("/crews/{id}", h.GetCrew)
	})
}
