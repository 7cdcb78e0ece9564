// Package respond writes the JSON envelope shared by every REST endpoint.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"videotube/backend/internal/apperr"
)

// Envelope is the success body: {statusCode, data, message, success}.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorBody is the failure body: {statusCode, message, success:false}.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// JSON writes data wrapped in an Envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Envelope{StatusCode: status, Data: data, Message: message, Success: status < http.StatusBadRequest})
}

// Error maps err to its HTTP status and public message. Internal failures are logged
// with their full context; clients only see the generic message.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	write(w, status, ErrorBody{StatusCode: status, Message: apperr.PublicMessage(err), Success: false})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
