package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/siberialife/siberialife/internal/app/system/lock"
	"github.com/siberialife/siberialife/internal/app/system/ratelimit"
	"github.com/siberialife/siberialife/internal/testutil"
	"github.com/spf13/afero"
)

func testRouter(t *testing.T, env string) http.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/app/dist/index.html", []byte("<div id=root></div>"), 0o644); err != nil {
		t.Fatal(err)
	}

	limiter := ratelimit.NewLoginLimiter(100, time.Minute)
	locker := lock.NewMemoryLocker()
	t.Cleanup(func() {
		limiter.Stop()
		_ = locker.Close()
	})

	cfg := AppConfig{
		JWTSecret:          "router-test-secret",
		JWTExpire:          time.Hour,
		UploadsDir:         "/app/uploads",
		UploadsURL:         "/uploads",
		AvatarMaxBytes:     1 << 20,
		StaticDir:          "/app/dist",
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		AuditLogAuth:       "log",
		AuditLogActivity:   "off",
	}
	deps := DBDeps{
		MongoClient:   db.Client(),
		MongoDatabase: db,
		Locker:        locker,
		LoginLimiter:  limiter,
	}
	h, err := buildRouter(env, cfg, deps, fs, testLogger())
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}
	return h
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_AuthFlow(t *testing.T) {
	h := testRouter(t, "dev")

	rec := do(h, testutil.JSONRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ирина", "email": "irina@example.ru", "password": "secret1",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var reg struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(testutil.DecodeEnvelope(t, rec).Data, &reg); err != nil || reg.Token == "" {
		t.Fatalf("register token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	if rec := do(h, req); rec.Code != http.StatusOK {
		t.Errorf("me: status = %d", rec.Code)
	}

	if rec := do(h, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("me without token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/audit", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	if rec := do(h, req); rec.Code != http.StatusForbidden {
		t.Errorf("audit as participant: status = %d, want 403", rec.Code)
	}
}

func TestRouter_UnknownAPIRouteIsJSON(t *testing.T) {
	h := testRouter(t, "prod")

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/places", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	env := testutil.DecodeEnvelope(t, rec)
	if env.Success || env.Message != "Route not found" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestRouter_SPAOnlyInProd(t *testing.T) {
	prod := testRouter(t, "prod")
	rec := do(prod, httptest.NewRequest(http.MethodGet, "/events/ice-fishing", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "id=root") {
		t.Errorf("prod: status = %d, body = %q", rec.Code, rec.Body.String())
	}

	dev := testRouter(t, "dev")
	if rec := do(dev, httptest.NewRequest(http.MethodGet, "/events/ice-fishing", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("dev: status = %d, want 404", rec.Code)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := testRouter(t, "dev")

	if rec := do(h, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("health: status = %d", rec.Code)
	}
	rec := do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics: status = %d", rec.Code)
	}
}

func TestRouter_CORS(t *testing.T) {
	h := testRouter(t, "dev")

	req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := do(h, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}
