package envelope_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/siberialife/siberialife/internal/app/system/envelope"
)

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	envelope.Fail(rec, http.StatusForbidden, "Access denied")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content-type = %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false || body["message"] != "Access denied" {
		t.Errorf("body = %v", body)
	}
	if _, has := body["data"]; has {
		t.Error("failure envelope carries data")
	}
}
