package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"keswan/internal/core"
	"keswan/internal/log"
	"keswan/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrPeriodRequired),
		errors.Is(err, services.ErrUnknownKind),
		errors.Is(err, services.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrJobsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err and writes it as a JSON error body. Internal errors
// are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, msg, log.FieldPath, r.URL.Path)
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, msg, log.FieldStatusCode, status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDocument sends an export as a file download.
func writeDocument(w http.ResponseWriter, doc services.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}
