// internal/app/features/authapi/handler.go
package authapi

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/siberialife/siberialife/internal/app/features/errors"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"github.com/siberialife/siberialife/internal/app/system/auditlog"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/app/system/inputval"
	"github.com/siberialife/siberialife/internal/app/system/metrics"
	"github.com/siberialife/siberialife/internal/app/system/normalize"
	"github.com/siberialife/siberialife/internal/app/system/ratelimit"
	"github.com/siberialife/siberialife/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Svc      *Service
	Limiter  *ratelimit.LoginLimiter
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// NewHandler wires the auth endpoints. limiter, audit and m may be nil.
func NewHandler(svc *Service, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:      svc,
		Limiter:  limiter,
		AuditLog: audit,
		Metrics:  m,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// HandleRegister serves POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "register: decode", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Svc.Register(ctx, in)
	if err != nil {
		h.Metrics.AuthEvent("register", resultFor(err))
		h.ErrLog.Respond(w, r, "register failed", err)
		return
	}
	h.Metrics.AuthEvent("register", metrics.ResultSuccess)
	h.AuditLog.Registered(ctx, r, res.User.ID, res.User.Role)
	h.Log.Info("user registered", zap.String("user_id", res.User.ID.Hex()))
	uierrors.Created(w, res)
}

// HandleLogin serves POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Respond(w, r, "login: decode", err)
		return
	}
	email := normalize.Email(in.Email)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, email); !ok {
			h.Metrics.AuthEvent("login", metrics.ResultLimited)
			h.AuditLog.LoginFailedRateLimit(ctx, r, email, reason)
			h.ErrLog.Respond(w, r, "login rate limited", apperr.New(apperr.RateLimited, reason))
			return
		}
	}

	res, err := h.Svc.Login(ctx, in)
	if err != nil {
		h.Metrics.AuthEvent("login", resultFor(err))
		var ce *CredentialError
		if errors.As(err, &ce) {
			switch ce.Reason {
			case ReasonUnknownEmail:
				h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
			case ReasonWrongPassword:
				h.AuditLog.LoginFailedWrongPassword(ctx, r, ce.UserID, email)
			}
		}
		h.ErrLog.Respond(w, r, "login failed", err)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.Metrics.AuthEvent("login", metrics.ResultSuccess)
	h.AuditLog.LoginSuccess(ctx, r, res.User.ID, email)
	uierrors.OK(w, res)
}

// HandleMe serves GET /api/auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "me: no user", apperr.New(apperr.Unauthorized, "Not authorized, no token"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Svc.Me(ctx, cu.ID)
	if err != nil {
		h.ErrLog.Respond(w, r, "me failed", err)
		return
	}
	uierrors.OK(w, u)
}

func resultFor(err error) string {
	if apperr.KindOf(err) == apperr.InternalError {
		return metrics.ResultFailure
	}
	return metrics.ResultRejected
}
