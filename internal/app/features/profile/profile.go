// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	uierrors "github.com/siberialife/siberialife/internal/app/features/errors"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/app/system/inputval"
	"github.com/siberialife/siberialife/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errNoUser = apperr.New(apperr.Unauthorized, "Not authorized, no token")

// HandleUpdateProfile serves PUT /api/users/profile and /api/users/profile/{id}.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "profile: no user", errNoUser)
		return
	}
	target := chi.URLParam(r, "id")
	if target == "" {
		target = cu.ID
	}

	var in ProfileInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "profile: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Svc.UpdateProfile(ctx, cu, target, in)
	if err != nil {
		h.ErrLog.Respond(w, r, "profile update failed", err)
		return
	}

	var changed []string
	if in.Name != nil {
		changed = append(changed, "name")
	}
	if in.Avatar != nil {
		changed = append(changed, "avatar")
	}
	if actor, err := primitive.ObjectIDFromHex(cu.ID); err == nil {
		h.AuditLog.ProfileUpdated(ctx, r, actor, u.ID, strings.Join(changed, ","))
	}
	uierrors.OK(w, u)
}

// HandleChangePassword serves PUT /api/users/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "password: no user", errNoUser)
		return
	}

	var in PasswordInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "password: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	uid, _ := primitive.ObjectIDFromHex(cu.ID)
	if err := h.Svc.ChangePassword(ctx, cu.ID, in); err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind != apperr.InternalError {
			h.AuditLog.PasswordChangeFailed(ctx, r, uid, ae.Message)
		}
		h.ErrLog.Respond(w, r, "password change failed", err)
		return
	}
	h.AuditLog.PasswordChanged(ctx, r, uid)
	uierrors.Message(w, "Password updated successfully")
}
