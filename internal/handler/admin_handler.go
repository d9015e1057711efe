package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/middleware"
	"portfolio-be/internal/service"
	apperrors "portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// AdminHandler serves owner-only views of the counters
type AdminHandler struct {
	tracker   service.ViewTracker
	snapshots service.SnapshotService
	logger    *logger.Logger
}

// NewAdminHandler creates a new admin handler. snapshots may be nil.
func NewAdminHandler(tracker service.ViewTracker, snapshots service.SnapshotService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		tracker:   tracker,
		snapshots: snapshots,
		logger:    log.Named("admin_handler"),
	}
}

// PageViewsResponse is the body of GET /admin/views
type PageViewsResponse struct {
	Pages []domain.PageViews `json:"pages"`
	Total int64              `json:"total"`
}

// ListViews handles GET /admin/views
func (h *AdminHandler) ListViews(w http.ResponseWriter, r *http.Request) {
	pages, err := h.tracker.ListPageViews(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrListingUnsupported) {
			sendErrorResponse(w, r, apperrors.NewNotFoundError("Listing is not available for this store"), h.logger)
			return
		}
		h.logger.WithError(err).WithField("request_id", middleware.GetRequestID(r.Context())).Error("Failed to list page views")
		sendErrorResponse(w, r, apperrors.NewInternalError("Internal server error", err), h.logger)
		return
	}

	var total int64
	for _, p := range pages {
		total += p.Views
	}

	writeJSON(w, http.StatusOK, PageViewsResponse{Pages: pages, Total: total}, h.logger)
}

// TriggerSnapshot handles POST /admin/snapshot. A failed copy answers 503.
func (h *AdminHandler) TriggerSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		sendErrorResponse(w, r, apperrors.NewNotFoundError("Snapshots are not configured"), h.logger)
		return
	}

	result, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Manual snapshot failed")
		sendErrorResponse(w, r, apperrors.NewUnavailableError("Snapshot store unavailable", err), h.logger)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"subject": middleware.GetAdminSubject(r.Context()),
		"pages":   result.Pages,
	}).Info("Manual snapshot saved")

	writeJSON(w, http.StatusOK, result, h.logger)
}

// RegisterRoutes registers admin routes behind auth
func (h *AdminHandler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth)
		r.Get("/views", h.ListViews)
		r.Post("/snapshot", h.TriggerSnapshot)
	})
}
