// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/go-chi/chi/v5"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/domain/models"
)

// Routes returns the router mounted at /api/admin/audit. Admins only.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireAuth)
		pr.Use(auth.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
	})

	return r
}
