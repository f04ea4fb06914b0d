package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{DuplicateEmail, http.StatusBadRequest},
		{InvalidCredentials, http.StatusUnauthorized},
		{InvalidToken, http.StatusUnauthorized},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{WeakPassword, http.StatusBadRequest},
		{NoFieldsProvided, http.StatusBadRequest},
		{NoFileUploaded, http.StatusBadRequest},
		{InvalidFileType, http.StatusBadRequest},
		{ValidationFailed, http.StatusBadRequest},
		{Conflict, http.StatusConflict},
		{InvalidTransition, http.StatusConflict},
		{RateLimited, http.StatusTooManyRequests},
		{InternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := Status(tt.kind); got != tt.want {
				t.Errorf("Status(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	base := New(NotFound, "User not found")
	err := fmt.Errorf("load profile: %w", base)

	if got := KindOf(err); got != NotFound {
		t.Errorf("KindOf = %s, want %s", got, NotFound)
	}
	if !Is(err, NotFound) {
		t.Error("expected Is(err, NotFound) to be true")
	}
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != InternalError {
		t.Errorf("KindOf = %s, want %s", got, InternalError)
	}
}

func TestInternal_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause)

	if !errors.Is(err, cause) {
		t.Error("expected Internal to wrap the cause")
	}
	if err.Message != "Server error" {
		t.Errorf("Message = %q, want generic message", err.Message)
	}
}
