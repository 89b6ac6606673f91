/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/sessions/*   Allocation sessions and selections
  /api/products/*   Inventory snapshots

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DeleteSession)
				r.Put("/target", h.UpdateTarget)
				r.Put("/unit", h.SetUnit)
				r.Post("/refresh", h.RefreshBatches)
				r.Post("/autofill", h.AutoFill)
				r.Post("/confirm", h.Confirm)

				r.Route("/batches/{batchID}", func(r chi.Router) {
					r.Post("/quantity", h.SetBatchQuantity)
					r.Post("/adjust", h.AdjustBatchQuantity)
					r.Post("/select-all", h.SelectAllFromBatch)
					r.Post("/select-remaining", h.SelectRemainingFromBatch)
					r.Delete("/", h.RemoveBatchSelection)
				})
			})
		})

		// Inventory routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/{id}/batches", h.GetProductBatches)
		})
	})

	return r
}
