// internal/app/features/clans/handler.go
package clans

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	uierrors "github.com/siberialife/siberialife/internal/app/features/errors"
	"github.com/siberialife/siberialife/internal/app/store/audit"
	clanstore "github.com/siberialife/siberialife/internal/app/store/clans"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"github.com/siberialife/siberialife/internal/app/system/auditlog"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/app/system/inputval"
	"github.com/siberialife/siberialife/internal/app/system/timeouts"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Svc      *Service
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(svc *Service, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, AuditLog: audit, ErrLog: errLog, Log: logger}
}

var errNoUser = apperr.New(apperr.Unauthorized, "Not authorized, no token")

// HandleList serves GET /api/clans.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := clanstore.ListFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		City:     q.Get("city"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			h.ErrLog.Respond(w, r, "clans: bad limit", apperr.New(apperr.ValidationFailed, "limit must be a non-negative number"))
			return
		}
		f.Limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Svc.List(ctx, f)
	if err != nil {
		h.ErrLog.Respond(w, r, "clans: list", err)
		return
	}
	uierrors.OK(w, list)
}

// HandleGet serves GET /api/clans/{id}; the key may also be a slug.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Svc.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Respond(w, r, "clans: get", err)
		return
	}
	uierrors.OK(w, c)
}

// HandleCreate serves POST /api/clans.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "clans: no user", errNoUser)
		return
	}
	var in CreateInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "clans: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Svc.Create(ctx, cu, in)
	if err != nil {
		h.ErrLog.Respond(w, r, "clans: create", err)
		return
	}
	h.AuditLog.ClanAction(ctx, r, audit.EventClanCreated, c.Creator, c.ID, nil, map[string]string{"name": c.Name, "slug": c.Slug})
	h.Log.Info("clan created", zap.String("clan_id", c.ID.Hex()), zap.String("slug", c.Slug))
	uierrors.Created(w, c)
}

// HandleJoin serves POST /api/clans/{id}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "clans: no user", errNoUser)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, joined, err := h.Svc.Join(ctx, cu, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Respond(w, r, "clans: join", err)
		return
	}
	if joined {
		uid, _ := primitive.ObjectIDFromHex(cu.ID)
		h.AuditLog.ClanAction(ctx, r, audit.EventClanMemberJoined, uid, c.ID, &uid, nil)
	}
	uierrors.OK(w, c)
}

// HandleLeave serves POST /api/clans/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "clans: no user", errNoUser)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Svc.Leave(ctx, cu, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Respond(w, r, "clans: leave", err)
		return
	}
	uid, _ := primitive.ObjectIDFromHex(cu.ID)
	h.AuditLog.ClanAction(ctx, r, audit.EventClanMemberLeft, uid, c.ID, &uid, nil)
	uierrors.OK(w, c)
}

// HandleSetRole serves PUT /api/clans/{id}/members/{userId}.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "clans: no user", errNoUser)
		return
	}
	var in RoleInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "clans: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, target, err := h.Svc.SetRole(ctx, cu, chi.URLParam(r, "id"), chi.URLParam(r, "userId"), in)
	if err != nil {
		h.ErrLog.Respond(w, r, "clans: set role", err)
		return
	}
	h.audit(ctx, r, cu, audit.EventClanMemberRole, c, target, map[string]string{"role": in.Role})
	uierrors.OK(w, c)
}

// HandleKick serves DELETE /api/clans/{id}/members/{userId}.
func (h *Handler) HandleKick(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "clans: no user", errNoUser)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, target, err := h.Svc.Kick(ctx, cu, chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		h.ErrLog.Respond(w, r, "clans: kick", err)
		return
	}
	h.audit(ctx, r, cu, audit.EventClanMemberRemoved, c, target, nil)
	uierrors.OK(w, c)
}

func (h *Handler) audit(ctx context.Context, r *http.Request, cu *auth.CurrentUser, eventType string, c *models.Clan, target primitive.ObjectID, details map[string]string) {
	actor, err := primitive.ObjectIDFromHex(cu.ID)
	if err != nil {
		return
	}
	h.AuditLog.ClanAction(ctx, r, eventType, actor, c.ID, &target, details)
}
