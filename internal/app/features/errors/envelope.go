// internal/app/features/errors/envelope.go
package errors

import (
	"net/http"

	"github.com/siberialife/siberialife/internal/app/system/envelope"
)

// Envelope is the body of every API response.
type Envelope = envelope.Envelope

// WriteJSON writes env with the given status.
func WriteJSON(w http.ResponseWriter, status int, env Envelope) {
	envelope.Write(w, status, env)
}

// OK writes a 200 success envelope around data.
func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 success envelope around data.
func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Message writes a 200 success envelope carrying only a message.
func Message(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: msg})
}

// Fail writes a failure envelope.
func Fail(w http.ResponseWriter, status int, msg string) {
	envelope.Fail(w, status, msg)
}
