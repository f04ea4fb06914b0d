// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/siberialife/siberialife/internal/app/features/profile"
	"github.com/siberialife/siberialife/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// devJWTSecret is only acceptable outside prod.
const devJWTSecret = "dev-only-change-me"

// minProdSecretLen is the shortest jwt_secret accepted in prod.
const minProdSecretLen = 32

// Lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// appConfigKeys defines the configuration keys for Siberia Life.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: SIBERIALIFE_MONGO_URI, SIBERIALIFE_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "siberia_life", Desc: "MongoDB database name"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "Token signing secret (required, >= 32 chars in prod)"},
	{Name: "jwt_expire", Default: "24h", Desc: "Token lifetime (e.g., 24h, 30m)"},

	{Name: "uploads_dir", Default: "./uploads", Desc: "Directory for uploaded avatars"},
	{Name: "uploads_url", Default: "/uploads", Desc: "URL prefix for uploaded avatars"},
	{Name: "avatar_max_bytes", Default: int(profile.DefaultMaxAvatarBytes), Desc: "Avatar upload size cap in bytes"},

	{Name: "static_dir", Default: "./client/dist", Desc: "SPA build directory (served in prod)"},
	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated CORS origins"},

	{Name: "lock_backend", Default: LockMemory, Desc: "Avatar upload lock backend: 'memory' or 'redis'"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (lock_backend=redis)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts allowed per client IP per window"},
	{Name: "login_rate_window", Default: "1m", Desc: "Login rate limit window"},

	{Name: "audit_log_auth", Default: auditlog.All, Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_activity", Default: auditlog.All, Desc: "Profile/clan/event logging: 'all', 'db', 'log', or 'off'"},

	{Name: "event_sweep_interval", Default: "5m", Desc: "How often ended events are marked completed (0 disables)"},

	{Name: "admin_email", Default: "", Desc: "Email of an existing account to promote to admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (SIBERIALIFE_* for the app) and flags, merged with
// precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SIBERIALIFE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		JWTSecret: appValues.String("jwt_secret"),
		JWTExpire: appValues.Duration("jwt_expire", defaultJWTExpire),

		UploadsDir:     appValues.String("uploads_dir"),
		UploadsURL:     strings.TrimRight(appValues.String("uploads_url"), "/"),
		AvatarMaxBytes: int64(appValues.Int("avatar_max_bytes")),

		StaticDir:          appValues.String("static_dir"),
		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		LockBackend:   strings.ToLower(strings.TrimSpace(appValues.String("lock_backend"))),
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		LoginRateLimit:  appValues.Int("login_rate_limit"),
		LoginRateWindow: appValues.Duration("login_rate_window", defaultLoginWindow),

		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogActivity: appValues.String("audit_log_activity"),

		EventSweepInterval: appValues.Duration("event_sweep_interval", defaultEventSweep),

		AdminEmail: appValues.String("admin_email"),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// In prod the token secret must be set explicitly and be long enough.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

// validateApp holds the checks that do not need WAFFLE's core config.
func validateApp(env string, appCfg AppConfig) error {
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if env == "prod" {
		if appCfg.JWTSecret == devJWTSecret {
			return fmt.Errorf("jwt_secret must be set in prod")
		}
		if len(appCfg.JWTSecret) < minProdSecretLen {
			return fmt.Errorf("jwt_secret must be at least %d characters in prod", minProdSecretLen)
		}
	}
	if appCfg.JWTExpire <= 0 {
		return fmt.Errorf("jwt_expire must be positive")
	}
	if appCfg.AvatarMaxBytes <= 0 {
		return fmt.Errorf("avatar_max_bytes must be positive")
	}
	if appCfg.UploadsDir == "" || !strings.HasPrefix(appCfg.UploadsURL, "/") {
		return fmt.Errorf("uploads_dir is required and uploads_url must start with /")
	}
	switch appCfg.LockBackend {
	case LockMemory:
	case LockRedis:
		if appCfg.RedisAddr == "" {
			return fmt.Errorf("lock_backend=redis requires redis_addr")
		}
	default:
		return fmt.Errorf("lock_backend must be %q or %q, got %q", LockMemory, LockRedis, appCfg.LockBackend)
	}
	if appCfg.LoginRateLimit <= 0 || appCfg.LoginRateWindow <= 0 {
		return fmt.Errorf("login_rate_limit and login_rate_window must be positive")
	}
	if appCfg.EventSweepInterval < 0 {
		return fmt.Errorf("event_sweep_interval must not be negative")
	}
	for name, mode := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_activity": appCfg.AuditLogActivity} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", name, mode)
		}
	}
	return nil
}
