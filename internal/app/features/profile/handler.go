// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/siberialife/siberialife/internal/app/features/errors"
	"github.com/siberialife/siberialife/internal/app/system/auditlog"
	"github.com/siberialife/siberialife/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Handler owns the profile, password and avatar endpoints.
type Handler struct {
	Svc      *Service
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

// NewHandler constructs a Handler. audit and m may be nil.
func NewHandler(svc *Service, audit *auditlog.Logger, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:      svc,
		AuditLog: audit,
		Metrics:  m,
		Log:      logger,
		ErrLog:   errLog,
	}
}
