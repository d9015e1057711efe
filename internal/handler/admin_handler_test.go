package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/repository"
	"portfolio-be/internal/service"
	"portfolio-be/pkg/logger"
)

func passThrough(next http.Handler) http.Handler { return next }

func newAdminRouter(store repository.ViewStore, snapshots service.SnapshotService) http.Handler {
	tracker := service.NewViewTracker(store, logger.Nop(), true)
	h := NewAdminHandler(tracker, snapshots, logger.Nop())

	r := chi.NewRouter()
	h.RegisterRoutes(r, passThrough)
	return r
}

func TestAdminHandler_ListViews(t *testing.T) {
	store := repository.NewMemoryViewStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "/a", &domain.ViewRecord{Views: 2, SeenFingerprints: []domain.Fingerprint{"x", "y"}}))
	require.NoError(t, store.Put(ctx, "/b", &domain.ViewRecord{Views: 5, SeenFingerprints: []domain.Fingerprint{"x"}}))

	rec := httptest.NewRecorder()
	newAdminRouter(store, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/views", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PageViewsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Pages, 2)
	assert.Equal(t, domain.PageKey("/b"), resp.Pages[0].Slug)
	assert.Equal(t, int64(7), resp.Total)
}

func TestAdminHandler_ListUnsupported(t *testing.T) {
	rec := httptest.NewRecorder()
	newAdminRouter(&failingStore{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/views", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminHandler_SnapshotNotConfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	newAdminRouter(repository.NewMemoryViewStore(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/snapshot", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminHandler_Snapshot(t *testing.T) {
	primary := repository.NewMemoryViewStore()
	backup := repository.NewMemoryViewStore()
	ctx := context.Background()
	require.NoError(t, primary.Put(ctx, "/a", domain.NewViewRecord("fp")))

	snapshots := service.NewSnapshotService(primary, backup, "", logger.Nop())

	rec := httptest.NewRecorder()
	newAdminRouter(primary, snapshots).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	saved, err := backup.Get(ctx, "/a")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, int64(1), saved.Views)
}

type failingSnapshots struct {
	service.SnapshotService
}

func (failingSnapshots) Snapshot(ctx context.Context) (*domain.SnapshotResult, error) {
	return nil, errors.New("connection refused")
}

func TestAdminHandler_SnapshotFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	newAdminRouter(repository.NewMemoryViewStore(), failingSnapshots{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/snapshot", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"unavailable"`)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
