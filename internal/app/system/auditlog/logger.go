// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/siberialife/siberialife/internal/app/store/audit"
	"github.com/siberialife/siberialife/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations accepted by Config fields.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// ValidMode reports whether s is a destination setting. Empty means All.
func ValidMode(s string) bool {
	switch s {
	case "", All, DB, Log, Off:
		return true
	}
	return false
}

// Config holds audit logging configuration.
type Config struct {
	// Auth controls register, login and password events.
	Auth string
	// Activity controls profile, clan and event changes.
	Activity string
}

// Logger records audit events to MongoDB (via audit.Store) and zap.
// A nil *Logger is a no-op.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.TargetID != nil {
		fields = append(fields, zap.String("target_id", event.TargetID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) settingFor(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	default:
		s = l.config.Activity
	}
	if s == "" {
		return All
	}
	return s
}

// Log records event according to the configured destination for its category.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	setting := l.settingFor(event.Category)
	if setting == Off {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func base(r *http.Request, category, eventType string, success bool) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// --- Authentication Events ---

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string) {
	e := base(r, audit.CategoryAuth, audit.EventRegistered, true)
	e.UserID = &userID
	e.Details = map[string]string{"role": role}
	l.Log(ctx, e)
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	e.UserID = &userID
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailedUserNotFound logs a login for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, email string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginFailedUserNotFound, false)
	e.FailureReason = "user not found"
	e.Details = map[string]string{"attempted_email": email}
	l.Log(ctx, e)
}

// LoginFailedWrongPassword logs a login with a wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginFailedWrongPassword, false)
	e.UserID = &userID
	e.FailureReason = "wrong password"
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailedRateLimit logs a login rejected by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email, limitType string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginFailedRateLimit, false)
	e.FailureReason = "rate limit exceeded"
	e.Details = map[string]string{"attempted_email": email, "limit_type": limitType}
	l.Log(ctx, e)
}

// PasswordChanged logs a password change.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAuth, audit.EventPasswordChanged, true)
	e.UserID = &userID
	l.Log(ctx, e)
}

// PasswordChangeFailed logs a rejected password change.
func (l *Logger) PasswordChangeFailed(ctx context.Context, r *http.Request, userID primitive.ObjectID, reason string) {
	e := base(r, audit.CategoryAuth, audit.EventPasswordChangeFailed, false)
	e.UserID = &userID
	e.FailureReason = reason
	l.Log(ctx, e)
}

// --- Activity Events ---

// ProfileUpdated logs a profile change. fields lists the changed field names.
func (l *Logger) ProfileUpdated(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, fields string) {
	e := base(r, audit.CategoryProfile, audit.EventProfileUpdated, true)
	e.UserID = &userID
	if actorID != userID {
		e.ActorID = &actorID
	}
	e.Details = map[string]string{"fields_changed": fields}
	l.Log(ctx, e)
}

// AvatarUploaded logs a stored avatar.
func (l *Logger) AvatarUploaded(ctx context.Context, r *http.Request, userID primitive.ObjectID, file string, size int64) {
	e := base(r, audit.CategoryProfile, audit.EventAvatarUploaded, true)
	e.UserID = &userID
	e.Details = map[string]string{"file": file, "size": strconv.FormatInt(size, 10)}
	l.Log(ctx, e)
}

// ClanAction logs a change to a clan. userID is the affected member, if any.
func (l *Logger) ClanAction(ctx context.Context, r *http.Request, eventType string, actorID, clanID primitive.ObjectID, userID *primitive.ObjectID, details map[string]string) {
	e := base(r, audit.CategoryClan, eventType, true)
	e.ActorID = &actorID
	e.TargetID = &clanID
	e.UserID = userID
	e.Details = details
	l.Log(ctx, e)
}

// EventAction logs a change to an event.
func (l *Logger) EventAction(ctx context.Context, r *http.Request, eventType string, actorID, eventID primitive.ObjectID, details map[string]string) {
	e := base(r, audit.CategoryEvent, eventType, true)
	e.ActorID = &actorID
	e.TargetID = &eventID
	e.Details = details
	l.Log(ctx, e)
}
