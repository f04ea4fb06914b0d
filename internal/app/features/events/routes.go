// internal/app/features/events/routes.go
package events

import (
	"github.com/go-chi/chi/v5"
	"github.com/siberialife/siberialife/internal/app/system/auth"
)

// Routes returns the router mounted at /api/events.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.With(mw.Optional).Get("/{id}", h.HandleGet)

	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireAuth)
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Patch("/{id}/status", h.HandleSetStatus)
		pr.Post("/{id}/register", h.HandleRegister)
		pr.Delete("/{id}/register", h.HandleCancelRegistration)
		pr.Post("/{id}/reviews", h.HandleReview)
	})
	return r
}
