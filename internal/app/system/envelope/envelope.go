// Package envelope writes the JSON body shared by every API response.
//
// It sits under system so middleware such as auth can emit failures in the
// same shape as feature handlers, which reach it through features/errors.
package envelope

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Write encodes env with the given status.
func Write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// Fail writes a failure envelope.
func Fail(w http.ResponseWriter, status int, msg string) {
	Write(w, status, Envelope{Success: false, Message: msg})
}
