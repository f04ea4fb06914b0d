// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	uierrors "github.com/siberialife/siberialife/internal/app/features/errors"
	"github.com/siberialife/siberialife/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Events is the audit store surface the list needs.
type Events interface {
	Query(ctx context.Context, f audit.QueryFilter) ([]audit.Event, error)
	Count(ctx context.Context, f audit.QueryFilter) (int64, error)
}

// Names resolves user ids to display names.
type Names interface {
	NamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

type Handler struct {
	Events Events
	Names  Names
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs the audit log handler. names may be nil, in which
// case ids are shown instead of names.
func NewHandler(events Events, names Names, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Names:  names,
		Log:    logger,
		ErrLog: errLog,
	}
}
