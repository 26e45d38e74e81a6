package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. The status is derived from the error type via statusFor
//  4. Error is mapped via core.MapError to get user-friendly message
//  5. Technical error + context is logged with request ID for correlation

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/JonMunkholm/subtrack/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code      string   `json:"code"`
	Missing   []string `json:"missing,omitempty"`
	Retryable bool     `json:"retryable,omitempty"`
}

// respondError logs err and writes the mapped user message with the status
// matching its type.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", args...)
	} else {
		log.Info("request rejected", args...)
	}

	resp := ErrorResponse{
		Error:     userMsg.Message,
		Message:   userMsg.Message,
		Action:    userMsg.Action,
		Code:      userMsg.Code,
		Retryable: core.IsRetryable(err),
	}
	var me *core.MappingError
	if errors.As(err, &me) {
		resp.Missing = me.Missing
	}
	writeJSON(w, status, resp)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var (
		fe *core.FileError
		se *core.SchemaError
		me *core.MappingError
	)
	switch {
	case errors.As(err, &fe):
		switch fe.Kind {
		case core.FileTooLarge:
			return http.StatusRequestEntityTooLarge
		case core.FileUnsupportedType:
			return http.StatusUnsupportedMediaType
		default:
			return http.StatusUnprocessableEntity
		}
	case errors.As(err, &se):
		return http.StatusNotFound
	case errors.As(err, &me):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSessionBusy), errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError writes a JSON error for request problems detected by the
// handlers themselves, before any pipeline call.
func writeError(w http.ResponseWriter, status int, code, message, action string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Message: message,
		Action:  action,
		Code:    code,
	})
}

// badRequest reports a malformed request.
func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "REQ001", message, "Check the request and try again")
}
