// Package auth authenticates API requests from bearer tokens and carries the
// signed-in user through the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/siberialife/siberialife/internal/app/system/envelope"
	"github.com/siberialife/siberialife/internal/app/system/token"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current user                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// CurrentUser is what the middleware injects into r.Context().
type CurrentUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// IsAdmin reports whether the user has the admin role.
func (u *CurrentUser) IsAdmin() bool { return u != nil && u.Role == "admin" }

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// UserFrom returns the user and a "found?" flag.
func UserFrom(r *http.Request) (*CurrentUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*CurrentUser)
	return u, ok && u != nil
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// WithTestUser injects u into r for handler tests.
func WithTestUser(r *http.Request, u *CurrentUser) *http.Request {
	return r.WithContext(WithUser(r.Context(), u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// Verifier checks a raw token.
type Verifier interface {
	Verify(raw string) (token.Claims, error)
}

// UserFetcher loads the user named by a token. It returns nil when the user
// does not exist or cannot be loaded.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *CurrentUser
}

// Middleware authenticates requests.
type Middleware struct {
	tokens Verifier
	users  UserFetcher
	log    *zap.Logger
}

// NewMiddleware builds a Middleware.
func NewMiddleware(tokens Verifier, users UserFetcher, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, users: users, log: logger}
}

const (
	msgNoToken      = "Not authorized, no token"
	msgTokenFailed  = "Not authorized, token failed"
	msgUserNotFound = "Not authorized, user not found"
	msgForbidden    = "Forbidden"
)

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// authenticate resolves the request's user. msg is set when it fails.
func (m *Middleware) authenticate(r *http.Request) (u *CurrentUser, msg string) {
	raw, ok := BearerToken(r)
	if !ok {
		return nil, msgNoToken
	}
	claims, err := m.tokens.Verify(raw)
	if err != nil {
		m.log.Debug("token rejected", zap.Error(err))
		return nil, msgTokenFailed
	}
	u = m.users.FetchUser(r.Context(), claims.UserID)
	if u == nil {
		return nil, msgUserNotFound
	}
	return u, ""
}

// RequireAuth rejects requests without a valid token for an existing user
// with 401 and the standard failure envelope.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, msg := m.authenticate(r)
		if u == nil {
			envelope.Fail(w, http.StatusUnauthorized, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireToken checks only the token and puts a CurrentUser carrying just
// the id into the context. Handlers behind it load the user themselves and
// can report a deleted account as not found.
func (m *Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := BearerToken(r)
		if !ok {
			envelope.Fail(w, http.StatusUnauthorized, msgNoToken)
			return
		}
		claims, err := m.tokens.Verify(raw)
		if err != nil {
			m.log.Debug("token rejected", zap.Error(err))
			envelope.Fail(w, http.StatusUnauthorized, msgTokenFailed)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &CurrentUser{ID: claims.UserID})))
	})
}

// Optional loads the user when a valid token is present and otherwise lets
// the request through anonymously.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := m.authenticate(r); u != nil {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole must run after RequireAuth. Users whose role is not listed get 403.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFrom(r)
			if !ok {
				envelope.Fail(w, http.StatusUnauthorized, msgNoToken)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				envelope.Fail(w, http.StatusForbidden, msgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
