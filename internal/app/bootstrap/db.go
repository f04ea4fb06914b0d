// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	eventstore "github.com/siberialife/siberialife/internal/app/store/events"
	"github.com/siberialife/siberialife/internal/app/system/indexes"
	"github.com/siberialife/siberialife/internal/app/system/lock"
	"github.com/siberialife/siberialife/internal/app/system/ratelimit"
	"github.com/siberialife/siberialife/internal/app/system/validators"
	"github.com/siberialife/siberialife/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	defaultJWTExpire   = 24 * time.Hour
	defaultLoginWindow = time.Minute
	connectTimeout     = 10 * time.Second
	defaultEventSweep  = 5 * time.Minute
)

// ConnectDB connects MongoDB and, for the redis lock backend, Redis. It also
// creates the in-process limiter and locker so Shutdown can release them.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(appCfg.MongoURI))
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		LoginLimiter:  ratelimit.NewLoginLimiter(appCfg.LoginRateLimit, appCfg.LoginRateWindow),
	}

	switch appCfg.LockBackend {
	case LockRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		if err := rdb.Ping(cctx).Err(); err != nil {
			_ = rdb.Close()
			deps.LoginLimiter.Stop()
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("redis ping: %w", err)
		}
		deps.Redis = rdb
		deps.Locker = lock.NewRedisLocker(rdb)
		logger.Info("avatar lock backend: redis", zap.String("addr", appCfg.RedisAddr))
	default:
		deps.Locker = lock.NewMemoryLocker()
		logger.Info("avatar lock backend: memory")
	}

	if appCfg.EventSweepInterval > 0 {
		deps.EventWorker = workers.NewEventCompletion(eventstore.New(deps.MongoDatabase), logger, appCfg.EventSweepInterval)
	}

	return deps, nil
}

// EnsureSchema creates collection validators and indexes. Both steps are
// idempotent and run on every start.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("schema validators", zap.Error(err))
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("indexes", zap.Error(err))
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
