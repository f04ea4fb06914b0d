package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := New(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("fourth attempt should be blocked")
	}
	if !l.Allow("other") {
		t.Error("keys must be independent")
	}
	if got := l.Remaining("k"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()

	now := time.Now()
	l.now = func() time.Time { return now }
	if !l.Allow("k") || l.Allow("k") {
		t.Fatal("expected allow then block")
	}

	now = now.Add(2 * time.Minute)
	if !l.Allow("k") {
		t.Error("expected allow after the window expired")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()

	l.Allow("k")
	l.Reset("k")
	if got := l.Remaining("k"); got != 1 {
		t.Errorf("Remaining after reset = %d, want 1", got)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	if got := ClientIP(r); got != "10.0.0.9" {
		t.Errorf("ClientIP = %q", got)
	}

	r.Header.Set("X-Real-IP", "192.0.2.7")
	if got := ClientIP(r); got != "192.0.2.7" {
		t.Errorf("ClientIP with X-Real-IP = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")
	if got := ClientIP(r); got != "203.0.113.1" {
		t.Errorf("ClientIP with X-Forwarded-For = %q", got)
	}
}

func TestLoginLimiter(t *testing.T) {
	ll := NewLoginLimiter(4, time.Minute)
	defer ll.Stop()

	r := httptest.NewRequest("POST", "/api/auth/login", nil)

	// Email limit is 2.
	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(r, "A@b.ru"); !ok {
			t.Fatalf("attempt %d blocked", i+1)
		}
	}
	if ok, reason := ll.Check(r, "a@b.ru"); ok || reason == "" {
		t.Error("expected email limit to block with a reason")
	}

	ll.ResetEmail("a@b.ru")
	if ok, _ := ll.Check(r, "a@b.ru"); !ok {
		t.Error("expected allow after ResetEmail")
	}

	// IP limit (4) is now exhausted.
	if ok, _ := ll.Check(r, "c@d.ru"); ok {
		t.Error("expected IP limit to block")
	}
}
