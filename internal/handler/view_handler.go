package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/middleware"
	"portfolio-be/internal/service"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/fingerprint"
	"portfolio-be/pkg/logger"
)

// maxViewBodyBytes caps POST /views bodies; a slug never needs more
const maxViewBodyBytes = 4 << 10

// ViewHandler handles view counting HTTP requests
type ViewHandler struct {
	tracker   service.ViewTracker
	ipHashKey string
	logger    *logger.Logger
}

// NewViewHandler creates a new view handler. An empty ipHashKey falls back to
// unkeyed fingerprints.
func NewViewHandler(tracker service.ViewTracker, ipHashKey string, log *logger.Logger) *ViewHandler {
	return &ViewHandler{
		tracker:   tracker,
		ipHashKey: ipHashKey,
		logger:    log.Named("view_handler"),
	}
}

// RecordViewRequest is the body of POST /views
type RecordViewRequest struct {
	Slug string `json:"slug"`
}

// ViewsResponse is the body of every successful /views response
type ViewsResponse struct {
	Views int64 `json:"views"`
}

// RecordView handles POST /views
func (h *ViewHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	var req RecordViewRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxViewBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, r, errors.NewValidationError("Request body must be a JSON object with a slug", nil), h.logger)
		return
	}

	if req.Slug == "" {
		sendErrorResponse(w, r, errors.NewValidationError("Slug is required", map[string]interface{}{"field": "slug"}), h.logger)
		return
	}

	key := domain.PageKey(req.Slug)
	fp := fingerprint.Compute(fingerprint.ResolveAddress(r.Header), h.ipHashKey)

	views, err := h.tracker.RecordView(r.Context(), key, fp)
	if err != nil {
		h.logStoreError(r, err, key, "record_view")
		sendErrorResponse(w, r, errors.NewInternalError("Internal server error", err), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ViewsResponse{Views: views}, h.logger)
}

// GetViews handles GET /views?slug=
func (h *ViewHandler) GetViews(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		sendErrorResponse(w, r, errors.NewValidationError("Slug is required", map[string]interface{}{"field": "slug"}), h.logger)
		return
	}

	key := domain.PageKey(slug)
	views, err := h.tracker.GetViews(r.Context(), key)
	if err != nil {
		h.logStoreError(r, err, key, "get_views")
		sendErrorResponse(w, r, errors.NewInternalError("Internal server error", err), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ViewsResponse{Views: views}, h.logger)
}

func (h *ViewHandler) logStoreError(r *http.Request, err error, key domain.PageKey, operation string) {
	h.logger.WithError(err).WithFields(map[string]interface{}{
		"request_id": middleware.GetRequestID(r.Context()),
		"page_key":   key,
		"operation":  operation,
	}).Error("View store operation failed")
}

// RegisterRoutes registers view routes. recordLimiter, if not nil, wraps POST only.
func (h *ViewHandler) RegisterRoutes(r chi.Router, recordLimiter func(http.Handler) http.Handler) {
	r.Route("/views", func(r chi.Router) {
		r.Get("/", h.GetViews)

		r.Group(func(r chi.Router) {
			if recordLimiter != nil {
				r.Use(recordLimiter)
			}
			r.Post("/", h.RecordView)
		})
	})
}
