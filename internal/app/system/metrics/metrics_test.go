package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/"+id, nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/events/{id}", "404"))
	if got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
}

func TestAuthEvent(t *testing.T) {
	m := New()
	m.AuthEvent("login", ResultFailure)
	m.AuthEvent("login", ResultFailure)
	m.AuthEvent("login", ResultSuccess)

	if got := testutil.ToFloat64(m.authEvents.WithLabelValues("login", ResultFailure)); got != 2 {
		t.Errorf("login failures = %v, want 2", got)
	}

	var nilMetrics *Metrics
	nilMetrics.AuthEvent("login", ResultSuccess)
	nilMetrics.UploadBytes(10)
}

func TestHandler_Exposes(t *testing.T) {
	m := New()
	m.UploadBytes(2048)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "siberialife_avatar_upload_bytes_total 2048") {
		t.Errorf("metrics output missing upload counter:\n%s", body)
	}
}
