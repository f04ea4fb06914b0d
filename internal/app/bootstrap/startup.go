// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	userstore "github.com/siberialife/siberialife/internal/app/store/users"
	"github.com/siberialife/siberialife/internal/app/system/timeouts"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It promotes the configured admin account, if any, and starts the event
// completion worker. Accounts are never created here since there is no
// password to give them.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := ensureAdmin(ctx, deps.MongoDatabase, appCfg.AdminEmail, logger); err != nil {
		return err
	}
	if deps.EventWorker != nil {
		deps.EventWorker.Start()
	}
	return nil
}

// ensureAdmin gives the admin role to the account registered with email.
// A missing account is logged and skipped so the operator can register it
// and restart.
func ensureAdmin(ctx context.Context, db *mongo.Database, email string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := userstore.New(db).SetRoleByEmail(ctx, email, models.RoleAdmin)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		logger.Warn("admin account not registered yet", zap.String("email", email))
		return nil
	case err != nil:
		logger.Error("promote admin failed", zap.String("email", email), zap.Error(err))
		return err
	}

	logger.Info("admin account ready", zap.String("email", u.Email), zap.String("user_id", u.ID.Hex()))
	return nil
}
