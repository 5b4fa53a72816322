package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"emitrack/internal/log"
	"emitrack/internal/services"
	"emitrack/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps service errors to HTTP statuses. Anything unrecognized is a
// server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the failure and writes the mapped status. Internal errors
// are not echoed to the client.
func respondError(w http.ResponseWriter, r *http.Request, what string, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())

	switch status {
	case http.StatusInternalServerError:
		logger.Error(what+" failed", log.FieldError, err)
		writeError(w, status, "internal server error")
	case http.StatusNotFound:
		writeError(w, status, what+": not found")
	case http.StatusConflict:
		logger.Warn(what+" conflicted", log.FieldError, err)
		writeError(w, status, "the record was modified concurrently, please retry")
	default:
		writeError(w, status, err.Error())
	}
}
