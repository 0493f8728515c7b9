// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
)

// Logger is the subset of logger.Logger the error writer needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Body is the JSON shape of every error the gateway produces itself.
type Body struct {
	Error   string    `json:"error"`
	Code    ErrorCode `json:"code,omitempty"`
	Details string    `json:"details,omitempty"`
}

// WriteJSON answers with err's HTTP status and an {error} body.
func WriteJSON(w http.ResponseWriter, err error) {
	stdErr := Normalize(err)
	writeBody(w, stdErr.HTTPStatus(), Body{
		Error:   stdErr.Message,
		Code:    stdErr.Code,
		Details: stdErr.Details,
	})
}

// HTTPErrorHandler writes errors, logging caller faults at warn level and
// everything else at error level.
type HTTPErrorHandler struct {
	logger Logger
}

func NewHTTPErrorHandler(logger Logger) *HTTPErrorHandler {
	return &HTTPErrorHandler{logger: logger}
}

// Handle logs err with request context and writes the JSON error body.
func (h *HTTPErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := Normalize(err)
	fields := map[string]interface{}{
		"path":      r.URL.Path,
		"method":    r.Method,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	}
	if stdErr.HTTPStatus() < http.StatusInternalServerError {
		h.logger.Warn("request rejected", fields)
	} else {
		h.logger.Error("request failed", fields)
	}
	WriteJSON(w, stdErr)
}

func writeBody(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
