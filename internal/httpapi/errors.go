package httpapi

import (
	"encoding/json"
	"net/http"

	"aicore/internal/manager"
	"aicore/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeServiceError maps well-known manager errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case manager.IsModelNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case manager.IsTooBusy(err):
		IncrementBackpressure("queue_full")
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
	case manager.IsDependencyUnavailable(err):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	case manager.IsPromptTooLong(err):
		writeJSONError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		if he, ok := err.(HTTPError); ok {
			writeJSONError(w, he.StatusCode(), he.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
