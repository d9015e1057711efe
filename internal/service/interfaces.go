package service

import (
	"context"

	"portfolio-be/internal/domain"
)

// ViewTracker defines the view counting operations exposed to the web layer
type ViewTracker interface {
	// RecordView counts a visitor at most once per page and returns the current views
	RecordView(ctx context.Context, key domain.PageKey, fp domain.Fingerprint) (int64, error)

	// GetViews returns the current views without counting anyone
	GetViews(ctx context.Context, key domain.PageKey) (int64, error)

	// ListPageViews returns every page with its views, most viewed first
	ListPageViews(ctx context.Context) ([]domain.PageViews, error)
}

// SnapshotService defines the Redis-to-Postgres snapshot lifecycle
type SnapshotService interface {
	// Start restores an empty primary store and begins periodic snapshots
	Start(ctx context.Context) error

	// Stop gracefully shuts down the service, saving a final snapshot
	Stop(ctx context.Context) error

	// Snapshot copies the primary store into the snapshot store now
	Snapshot(ctx context.Context) (*domain.SnapshotResult, error)

	// Restore seeds an empty primary store from the snapshot store
	Restore(ctx context.Context) (*domain.SnapshotResult, error)
}
