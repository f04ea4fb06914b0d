// Package apperr defines the error kinds that cross the service/handler
// boundary and their HTTP status mapping.
//
// Services return *Error values built with New or Wrap. Handlers translate
// them into the JSON envelope with Status and the public Message; the wrapped
// cause is only ever logged.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	DuplicateEmail     Kind = "DuplicateEmail"
	InvalidCredentials Kind = "InvalidCredentials"
	NotFound           Kind = "NotFound"
	WeakPassword       Kind = "WeakPassword"
	NoFieldsProvided   Kind = "NoFieldsProvided"
	NoFileUploaded     Kind = "NoFileUploaded"
	InvalidFileType    Kind = "InvalidFileType"
	InvalidToken       Kind = "InvalidToken"
	Unauthorized       Kind = "Unauthorized"
	Forbidden          Kind = "Forbidden"
	ValidationFailed   Kind = "ValidationFailed"
	Conflict           Kind = "Conflict"
	InvalidTransition  Kind = "InvalidTransition"
	RateLimited        Kind = "RateLimited"
	InternalError      Kind = "InternalError"
)

// Error is an application error with a user-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an Error of the given kind carrying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Internal wraps cause as an InternalError with a generic message.
func Internal(cause error) *Error {
	return &Error{Kind: InternalError, Message: "Server error", Err: cause}
}

// KindOf returns the Kind of err, or InternalError when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return InternalError
}

// As returns the *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// Status maps a Kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case InvalidCredentials, InvalidToken, Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict, InvalidTransition:
		return http.StatusConflict
	case RateLimited:
		return http.StatusTooManyRequests
	case InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
