package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
	// AdminSubjectContextKey is the key for the authenticated admin subject
	AdminSubjectContextKey ContextKey = "admin_subject"
)

// GetRequestID returns the request ID stored by RequestID, if any
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// GetAdminSubject returns the subject of a validated admin token, if any
func GetAdminSubject(ctx context.Context) string {
	sub, _ := ctx.Value(AdminSubjectContextKey).(string)
	return sub
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, log *logger.Logger) {
	log.WithError(appErr).WithField("request_id", GetRequestID(r.Context())).Warn("Request rejected")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	if err := json.NewEncoder(w).Encode(errors.NewErrorResponse(appErr, GetRequestID(r.Context()))); err != nil {
		log.WithError(err).Error("Failed to encode error response")
	}
}

// retryAfter formats a wait as whole seconds, at least one
func retryAfter(d time.Duration) int {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
