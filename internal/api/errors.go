package api

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in the "code" field of error bodies.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeInternal          = "internal"
	ErrCodeInvalidTask       = "invalid_task"
	ErrCodeSyncInProgress    = "sync_in_progress"
	ErrCodeRemoteUnreachable = "remote_unreachable"
)

// APIError is the body of every non-2xx response, under "error".
// RequestID matches the X-Request-ID response header.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	rid := getRequestID(r.Context())
	if status >= http.StatusInternalServerError {
		logFor(r.Context()).Warn("request failed", "status", status, "code", code, "msg", message)
	}
	writeJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message, RequestID: rid}})
}

// writeJSON marshals first; a value that fails to encode yields a 500.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, `{"error":{"code":"internal","message":"encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
