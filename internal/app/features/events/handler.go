// internal/app/features/events/handler.go
package events

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	uierrors "github.com/siberialife/siberialife/internal/app/features/errors"
	"github.com/siberialife/siberialife/internal/app/store/audit"
	eventstore "github.com/siberialife/siberialife/internal/app/store/events"
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

// HandleList serves GET /api/events.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := eventstore.ListFilter{
		City:     q.Get("city"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
	}
	if v := q.Get("organizer"); v != "" {
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			h.ErrLog.Respond(w, r, "events: bad organizer", apperr.New(apperr.ValidationFailed, "organizer is invalid"))
			return
		}
		f.Organizer = oid
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			h.ErrLog.Respond(w, r, "events: bad limit", apperr.New(apperr.ValidationFailed, "limit must be a non-negative number"))
			return
		}
		f.Limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Svc.List(ctx, f)
	if err != nil {
		h.ErrLog.Respond(w, r, "events: list", err)
		return
	}
	uierrors.OK(w, list)
}

// HandleGet serves GET /api/events/{id}; the key may also be a slug.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.UserFrom(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e, err := h.Svc.Get(ctx, viewer, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Respond(w, r, "events: get", err)
		return
	}
	uierrors.OK(w, e)
}

// HandleCreate serves POST /api/events.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "events: no user", errNoUser)
		return
	}
	var in CreateInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "events: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := h.Svc.Create(ctx, cu, in)
	if err != nil {
		h.ErrLog.Respond(w, r, "events: create", err)
		return
	}
	h.AuditLog.EventAction(ctx, r, audit.EventEventCreated, e.Organizer, e.ID, map[string]string{"slug": e.Slug, "status": e.Status})
	h.Log.Info("event created", zap.String("event_id", e.ID.Hex()), zap.String("slug", e.Slug))
	uierrors.Created(w, e)
}

// HandleUpdate serves PUT /api/events/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "events: no user", errNoUser)
		return
	}
	var in UpdateInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "events: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := h.Svc.Update(ctx, cu, chi.URLParam(r, "id"), in)
	if err != nil {
		h.ErrLog.Respond(w, r, "events: update", err)
		return
	}
	h.audit(ctx, r, cu, audit.EventEventUpdated, e, map[string]string{"slug": e.Slug})
	uierrors.OK(w, e)
}

// HandleSetStatus serves PATCH /api/events/{id}/status.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "events: no user", errNoUser)
		return
	}
	var in StatusInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "events: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, from, err := h.Svc.SetStatus(ctx, cu, chi.URLParam(r, "id"), in)
	if err != nil {
		h.ErrLog.Respond(w, r, "events: status", err)
		return
	}
	if from != e.Status {
		h.audit(ctx, r, cu, audit.EventEventStatusChanged, e, map[string]string{"from": from, "to": e.Status})
	}
	uierrors.OK(w, e)
}

// HandleRegister serves POST /api/events/{id}/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.participation(w, r, h.Svc.Register)
}

// HandleCancelRegistration serves DELETE /api/events/{id}/register.
func (h *Handler) HandleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	h.participation(w, r, h.Svc.CancelRegistration)
}

func (h *Handler) participation(w http.ResponseWriter, r *http.Request, op func(context.Context, *auth.CurrentUser, string) (*models.Event, error)) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "events: no user", errNoUser)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := op(ctx, cu, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Respond(w, r, "events: registration", err)
		return
	}
	uierrors.OK(w, e)
}

// HandleReview serves POST /api/events/{id}/reviews.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "events: no user", errNoUser)
		return
	}
	var in ReviewInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "events: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := h.Svc.Review(ctx, cu, chi.URLParam(r, "id"), in)
	if err != nil {
		h.ErrLog.Respond(w, r, "events: review", err)
		return
	}
	uierrors.OK(w, e)
}

func (h *Handler) audit(ctx context.Context, r *http.Request, cu *auth.CurrentUser, eventType string, e *models.Event, details map[string]string) {
	actor, err := primitive.ObjectIDFromHex(cu.ID)
	if err != nil {
		return
	}
	h.AuditLog.EventAction(ctx, r, eventType, actor, e.ID, details)
}
