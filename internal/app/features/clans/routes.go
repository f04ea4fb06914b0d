// internal/app/features/clans/routes.go
package clans

import (
	"github.com/go-chi/chi/v5"
	"github.com/siberialife/siberialife/internal/app/system/auth"
)

// Routes returns the router mounted at /api/clans.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Get("/{id}", h.HandleGet)

	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireAuth)
		pr.Post("/", h.HandleCreate)
		pr.Post("/{id}/join", h.HandleJoin)
		pr.Post("/{id}/leave", h.HandleLeave)
		pr.Put("/{id}/members/{userId}", h.HandleSetRole)
		pr.Delete("/{id}/members/{userId}", h.HandleKick)
	})
	return r
}
