package repository

import (
	"context"
	"errors"
	"fmt"

	"portfolio-be/internal/domain"
)

// ErrStoreUnavailable marks any failure talking to the backing store:
// network errors, timeouts, cancelled contexts and undecodable values.
var ErrStoreUnavailable = errors.New("view store unavailable")

// ViewStore is keyed storage for view records
type ViewStore interface {
	// Get returns the record for key, or (nil, nil) if it was never written
	Get(ctx context.Context, key domain.PageKey) (*domain.ViewRecord, error)

	// Put overwrites the record for key
	Put(ctx context.Context, key domain.PageKey, record *domain.ViewRecord) error
}

// AtomicRecorder is implemented by stores that can count a visitor in a
// single conditional update, closing the get-then-put race.
type AtomicRecorder interface {
	// RecordUnique counts fp for key if it is new and returns the resulting views
	RecordUnique(ctx context.Context, key domain.PageKey, fp domain.Fingerprint) (int64, error)
}

// ViewLister is implemented by stores that can enumerate every page
type ViewLister interface {
	ListRecords(ctx context.Context) (map[domain.PageKey]*domain.ViewRecord, error)

	// HasRecords reports whether at least one page is stored
	HasRecords(ctx context.Context) (bool, error)
}

// BulkWriter is implemented by stores that can write many records at once
type BulkWriter interface {
	PutMany(ctx context.Context, records map[domain.PageKey]*domain.ViewRecord) error
}

// storeError wraps err as a store-unavailable failure for op on key
func storeError(op string, key domain.PageKey, err error) error {
	if key == "" {
		return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("%w: %s %q: %w", ErrStoreUnavailable, op, key, err)
}
