package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/repository"
	"portfolio-be/pkg/logger"
)

// DefaultViews is reported for a page with no record
const DefaultViews int64 = 1

// ErrListingUnsupported is returned by ListPageViews when the store cannot enumerate pages
var ErrListingUnsupported = errors.New("view store does not support listing")

// viewTracker counts each visitor at most once per page
type viewTracker struct {
	store    repository.ViewStore
	recorder repository.AtomicRecorder
	logger   *logger.Logger
}

// NewViewTracker creates a view tracker over store. With useAtomic set and a
// store that implements repository.AtomicRecorder, RecordView uses the
// store's conditional update; otherwise it falls back to get-then-put, which
// can lose an increment when two new visitors hit the same page at once.
func NewViewTracker(store repository.ViewStore, log *logger.Logger, useAtomic bool) ViewTracker {
	t := &viewTracker{
		store:  store,
		logger: log.Named("view_tracker"),
	}

	if recorder, ok := store.(repository.AtomicRecorder); ok && useAtomic {
		t.recorder = recorder
	}

	t.logger.WithField("atomic", t.recorder != nil).Info("Initialized view tracker")
	return t
}

// RecordView counts fp for key if it has not been seen and returns the current views
func (t *viewTracker) RecordView(ctx context.Context, key domain.PageKey, fp domain.Fingerprint) (int64, error) {
	if t.recorder != nil {
		views, err := t.recorder.RecordUnique(ctx, key, fp)
		if err != nil {
			return 0, fmt.Errorf("failed to record view: %w", err)
		}
		t.logRecorded(key, fp, views)
		return views, nil
	}

	current, err := t.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read views: %w", err)
	}

	var next *domain.ViewRecord
	switch {
	case current == nil:
		next = domain.NewViewRecord(fp)
	case current.HasSeen(fp):
		return current.Views, nil
	default:
		next = current.WithVisitor(fp)
	}

	if err := t.store.Put(ctx, key, next); err != nil {
		return 0, fmt.Errorf("failed to write views: %w", err)
	}

	t.logRecorded(key, fp, next.Views)
	return next.Views, nil
}

// GetViews returns the stored views for key, or DefaultViews for an unseen
// page or a record holding zero views
func (t *viewTracker) GetViews(ctx context.Context, key domain.PageKey) (int64, error) {
	record, err := t.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read views: %w", err)
	}
	if record == nil || record.Views == 0 {
		return DefaultViews, nil
	}
	return record.Views, nil
}

// ListPageViews returns every page ordered by views, most viewed first
func (t *viewTracker) ListPageViews(ctx context.Context) ([]domain.PageViews, error) {
	lister, ok := t.store.(repository.ViewLister)
	if !ok {
		return nil, ErrListingUnsupported
	}

	records, err := lister.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}

	pages := make([]domain.PageViews, 0, len(records))
	for key, record := range records {
		pages = append(pages, domain.PageViews{
			Slug:           key,
			Views:          record.Views,
			UniqueVisitors: len(record.SeenFingerprints),
		})
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Views != pages[j].Views {
			return pages[i].Views > pages[j].Views
		}
		return pages[i].Slug < pages[j].Slug
	})

	return pages, nil
}

func (t *viewTracker) logRecorded(key domain.PageKey, fp domain.Fingerprint, views int64) {
	t.logger.WithFields(map[string]interface{}{
		"page_key":    key,
		"fingerprint": shortFingerprint(fp),
		"views":       views,
	}).Debug("View recorded")
}

func shortFingerprint(fp domain.Fingerprint) string {
	if len(fp) <= 8 {
		return string(fp)
	}
	return string(fp[:8]) + "..."
}
