// internal/app/features/profile/routes.go
package profile

import (
	"github.com/go-chi/chi/v5"
	"github.com/siberialife/siberialife/internal/app/system/auth"
)

// Routes returns the router mounted at /api/users.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAuth)
	r.Put("/profile", h.HandleUpdateProfile)
	r.With(LimitBody(h.Svc.MaxAvatarBytes())).Put("/profile/avatar", h.HandleUploadAvatar)
	r.Put("/profile/{id}", h.HandleUpdateProfile)
	r.Put("/password", h.HandleChangePassword)
	return r
}
