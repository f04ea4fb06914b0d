// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP ports, TLS,
// the environment name and logging. Everything specific to Siberia Life
// lives here and is passed to the lifecycle hooks.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI      string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase string // Database name within MongoDB

	// Bearer tokens
	JWTSecret string        // HS256 signing secret (>= 32 chars in prod)
	JWTExpire time.Duration // Token lifetime

	// Avatar uploads
	UploadsDir     string // Directory avatars are written to
	UploadsURL     string // URL prefix avatars are served from
	AvatarMaxBytes int64  // Upload size cap

	// SPA build served in prod
	StaticDir string

	CORSAllowedOrigins []string

	// Avatar upload lock backend: "memory" or "redis"
	LockBackend   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Login throttling per client IP
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth     string
	AuditLogActivity string

	// How often published events past their end date are completed; 0 disables
	EventSweepInterval time.Duration

	// Existing account promoted to admin on startup (optional)
	AdminEmail string
}
