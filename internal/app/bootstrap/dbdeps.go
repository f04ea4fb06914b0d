// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"github.com/siberialife/siberialife/internal/app/system/lock"
	"github.com/siberialife/siberialife/internal/app/system/ratelimit"
	"github.com/siberialife/siberialife/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app, plus the
// process-wide state that handlers share and Shutdown must release.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is set only when lock_backend=redis.
	Redis  *redis.Client
	Locker lock.Locker

	LoginLimiter *ratelimit.LoginLimiter

	// EventWorker is nil when event_sweep_interval is 0.
	EventWorker *workers.EventCompletion
}
