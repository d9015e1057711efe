package handler

import (
	"net/http"

	"github.com/goccy/go-json"

	"portfolio-be/internal/middleware"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// writeJSON writes body with the given status
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// sendErrorResponse sends a standardized error response. Internal causes are
// logged by the caller and never reach the client.
func sendErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, log *logger.Logger) {
	writeJSON(w, appErr.StatusCode, errors.NewErrorResponse(appErr, middleware.GetRequestID(r.Context())), log)
}
