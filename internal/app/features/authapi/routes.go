// internal/app/features/authapi/routes.go
package authapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/siberialife/siberialife/internal/app/system/auth"
)

// Routes returns the router mounted at /api/auth.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.With(mw.RequireToken).Get("/me", h.HandleMe)
	return r
}
