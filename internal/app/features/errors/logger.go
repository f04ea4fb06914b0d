// internal/app/features/errors/logger.go
package errors

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"go.uber.org/zap"
)

// ErrorLogger turns service errors into failure envelopes. Internal errors
// are logged with request context and answered with a generic message.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger wraps logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

// Respond writes the envelope for err. msg labels the log entry.
func (e *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, msg string, err error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)

	if kind == apperr.InternalError {
		e.LogServerError(w, r, msg, err)
		return
	}

	e.log.Debug(msg,
		zap.String("kind", string(kind)),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	userMsg := string(kind)
	if ae, ok := apperr.As(err); ok && ae.Message != "" {
		userMsg = ae.Message
	}
	Fail(w, status, userMsg)
}

// LogServerError logs err and writes a 500 envelope.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	e.log.Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	Fail(w, http.StatusInternalServerError, "Server error")
}

// LogBadRequest logs err at warn level and writes a 400 envelope with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Warn(msg,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	Fail(w, http.StatusBadRequest, userMsg)
}
