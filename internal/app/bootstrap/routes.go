// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	auditlogfeature "github.com/siberialife/siberialife/internal/app/features/auditlog"
	"github.com/siberialife/siberialife/internal/app/features/authapi"
	"github.com/siberialife/siberialife/internal/app/features/clans"
	uierrors "github.com/siberialife/siberialife/internal/app/features/errors"
	"github.com/siberialife/siberialife/internal/app/features/events"
	healthfeature "github.com/siberialife/siberialife/internal/app/features/health"
	"github.com/siberialife/siberialife/internal/app/features/profile"
	"github.com/siberialife/siberialife/internal/app/store/audit"
	clanstore "github.com/siberialife/siberialife/internal/app/store/clans"
	eventstore "github.com/siberialife/siberialife/internal/app/store/events"
	userstore "github.com/siberialife/siberialife/internal/app/store/users"
	"github.com/siberialife/siberialife/internal/app/system/auditlog"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/app/system/metrics"
	"github.com/siberialife/siberialife/internal/app/system/spa"
	"github.com/siberialife/siberialife/internal/app/system/token"
	"github.com/siberialife/siberialife/internal/app/system/uploads"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Version is reported by /health. Set at build time with
// -ldflags "-X github.com/siberialife/siberialife/internal/app/bootstrap.Version=..."
var Version = "dev"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Siberia Life mounts the JSON API under /api, avatars under the uploads
// URL, and in prod the SPA build with an index.html fallback.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	return buildRouter(coreCfg.Env, appCfg, deps, afero.NewOsFs(), logger)
}

// buildRouter wires every feature against deps. fs backs both the uploads
// directory and the SPA build.
func buildRouter(env string, appCfg AppConfig, deps DBDeps, fs afero.Fs, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	files, err := uploads.New(fs, appCfg.UploadsDir, appCfg.UploadsURL)
	if err != nil {
		logger.Error("uploads dir init failed", zap.String("dir", appCfg.UploadsDir), zap.Error(err))
		return nil, err
	}

	expire := appCfg.JWTExpire
	if expire <= 0 {
		expire = defaultJWTExpire
	}
	tokens := token.New(appCfg.JWTSecret, expire)

	users := userstore.New(db)
	auditStore := audit.New(db)
	auditLogger := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Activity: appCfg.AuditLogActivity,
	})
	m := metrics.New()
	mw := auth.NewMiddleware(tokens, userstore.NewFetcher(db), logger)
	errLog := uierrors.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, Version, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", m.Handler())

	// Avatars
	r.Handle(appCfg.UploadsURL+"/*", fileserver.Handler(appCfg.UploadsURL, appCfg.UploadsDir))

	r.Route("/api", func(api chi.Router) {
		authSvc := authapi.NewService(users, tokens)
		authHandler := authapi.NewHandler(authSvc, deps.LoginLimiter, auditLogger, m, errLog, logger)
		api.Mount("/auth", authapi.Routes(authHandler, mw))

		profileSvc := profile.NewService(users, files, deps.Locker, appCfg.AvatarMaxBytes, logger)
		profileHandler := profile.NewHandler(profileSvc, auditLogger, m, errLog, logger)
		api.Mount("/users", profile.Routes(profileHandler, mw))

		clanHandler := clans.NewHandler(clans.NewService(clanstore.New(db)), auditLogger, errLog, logger)
		api.Mount("/clans", clans.Routes(clanHandler, mw))

		eventSvc := events.NewService(eventstore.New(db), users, logger)
		eventHandler := events.NewHandler(eventSvc, auditLogger, errLog, logger)
		api.Mount("/events", events.Routes(eventHandler, mw))

		auditHandler := auditlogfeature.NewHandler(auditStore, users, errLog, logger)
		api.Mount("/admin/audit", auditlogfeature.Routes(auditHandler, mw))

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			uierrors.Fail(w, http.StatusNotFound, "Route not found")
		})
		api.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			uierrors.Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
		})
	})

	// The dev server proxies /api, so the SPA is only served in prod.
	if env == "prod" {
		r.Handle("/*", spa.Handler(fs, appCfg.StaticDir))
		logger.Info("serving SPA build", zap.String("dir", appCfg.StaticDir))
	}

	return r, nil
}
