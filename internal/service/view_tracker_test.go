package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/repository"
	"portfolio-be/pkg/logger"
)

// mockViewStore implements only repository.ViewStore, so the tracker always
// takes the get-then-put path with it.
type mockViewStore struct {
	mock.Mock
}

func (m *mockViewStore) Get(ctx context.Context, key domain.PageKey) (*domain.ViewRecord, error) {
	args := m.Called(ctx, key)
	record, _ := args.Get(0).(*domain.ViewRecord)
	return record, args.Error(1)
}

func (m *mockViewStore) Put(ctx context.Context, key domain.PageKey, record *domain.ViewRecord) error {
	args := m.Called(ctx, key, record)
	return args.Error(0)
}

var errUnreachable = fmt.Errorf("%w: dial tcp: connection refused", repository.ErrStoreUnavailable)

func trackerModes() map[string]func() (ViewTracker, *repository.MemoryViewStore) {
	return map[string]func() (ViewTracker, *repository.MemoryViewStore){
		"get-then-put": func() (ViewTracker, *repository.MemoryViewStore) {
			store := repository.NewMemoryViewStore()
			return NewViewTracker(store, logger.Nop(), false), store
		},
		"atomic": func() (ViewTracker, *repository.MemoryViewStore) {
			store := repository.NewMemoryViewStore()
			return NewViewTracker(store, logger.Nop(), true), store
		},
	}
}

func TestViewTracker_Scenarios(t *testing.T) {
	for mode, setup := range trackerModes() {
		t.Run(mode, func(t *testing.T) {
			tracker, store := setup()
			ctx := context.Background()

			// first view on an empty store
			views, err := tracker.RecordView(ctx, "/blog/a", "fp1")
			require.NoError(t, err)
			assert.Equal(t, int64(1), views)

			record, err := store.Get(ctx, "/blog/a")
			require.NoError(t, err)
			assert.Equal(t, domain.NewViewRecord("fp1"), record)

			// same visitor again
			views, err = tracker.RecordView(ctx, "/blog/a", "fp1")
			require.NoError(t, err)
			assert.Equal(t, int64(1), views)

			// new visitor
			views, err = tracker.RecordView(ctx, "/blog/a", "fp2")
			require.NoError(t, err)
			assert.Equal(t, int64(2), views)

			record, err = store.Get(ctx, "/blog/a")
			require.NoError(t, err)
			assert.Equal(t, &domain.ViewRecord{Views: 2, SeenFingerprints: []domain.Fingerprint{"fp1", "fp2"}}, record)
		})
	}
}

func TestViewTracker_Monotonic(t *testing.T) {
	for mode, setup := range trackerModes() {
		t.Run(mode, func(t *testing.T) {
			tracker, _ := setup()
			ctx := context.Background()

			for i := 1; i <= 25; i++ {
				views, err := tracker.RecordView(ctx, "projects/ray-tracer", domain.Fingerprint(fmt.Sprintf("fp-%d", i)))
				require.NoError(t, err)
				assert.Equal(t, int64(i), views)
			}
		})
	}
}

func TestViewTracker_PagesAreIndependent(t *testing.T) {
	tracker, _ := trackerModes()["atomic"]()
	ctx := context.Background()

	_, err := tracker.RecordView(ctx, "/blog/a", "fp1")
	require.NoError(t, err)

	views, err := tracker.RecordView(ctx, "/blog/b", "fp1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), views)
}

func TestViewTracker_GetViews(t *testing.T) {
	tracker, store := trackerModes()["get-then-put"]()
	ctx := context.Background()

	views, err := tracker.GetViews(ctx, "/blog/never-visited")
	require.NoError(t, err)
	assert.Equal(t, DefaultViews, views)

	record, err := store.Get(ctx, "/blog/never-visited")
	require.NoError(t, err)
	assert.Nil(t, record, "reading must not create a record")

	require.NoError(t, store.Put(ctx, "/blog/a", &domain.ViewRecord{Views: 42, SeenFingerprints: []domain.Fingerprint{}}))
	views, err = tracker.GetViews(ctx, "/blog/a")
	require.NoError(t, err)
	assert.Equal(t, int64(42), views)

	require.NoError(t, store.Put(ctx, "/blog/restored", &domain.ViewRecord{Views: 0, SeenFingerprints: []domain.Fingerprint{}}))
	views, err = tracker.GetViews(ctx, "/blog/restored")
	require.NoError(t, err)
	assert.Equal(t, DefaultViews, views, "a zero count reads like an unseen page")
}

func TestViewTracker_SeenVisitorDoesNotWrite(t *testing.T) {
	store := &mockViewStore{}
	store.On("Get", mock.Anything, domain.PageKey("/blog/a")).
		Return(&domain.ViewRecord{Views: 3, SeenFingerprints: []domain.Fingerprint{"fp1", "fp2", "fp3"}}, nil)

	tracker := NewViewTracker(store, logger.Nop(), true)
	views, err := tracker.RecordView(context.Background(), "/blog/a", "fp2")

	require.NoError(t, err)
	assert.Equal(t, int64(3), views)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestViewTracker_StoreFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mockViewStore)
		call  func(ViewTracker) error
	}{
		{
			name: "record fails on read",
			setup: func(m *mockViewStore) {
				m.On("Get", mock.Anything, mock.Anything).Return(nil, errUnreachable)
			},
			call: func(tr ViewTracker) error {
				_, err := tr.RecordView(context.Background(), "/blog/a", "fp1")
				return err
			},
		},
		{
			name: "record fails on write",
			setup: func(m *mockViewStore) {
				m.On("Get", mock.Anything, mock.Anything).Return(nil, nil)
				m.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(errUnreachable)
			},
			call: func(tr ViewTracker) error {
				_, err := tr.RecordView(context.Background(), "/blog/a", "fp1")
				return err
			},
		},
		{
			name: "get fails on read",
			setup: func(m *mockViewStore) {
				m.On("Get", mock.Anything, mock.Anything).Return(nil, errUnreachable)
			},
			call: func(tr ViewTracker) error {
				_, err := tr.GetViews(context.Background(), "/blog/a")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockViewStore{}
			tt.setup(store)

			err := tt.call(NewViewTracker(store, logger.Nop(), true))
			assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
			store.AssertExpectations(t)
		})
	}
}

func TestViewTracker_ListPageViews(t *testing.T) {
	tracker, store := trackerModes()["atomic"]()
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[domain.PageKey]*domain.ViewRecord{
		"/blog/a": {Views: 2, SeenFingerprints: []domain.Fingerprint{"fp1", "fp2"}},
		"/blog/b": {Views: 5, SeenFingerprints: []domain.Fingerprint{"fp1", "fp2", "fp3", "fp4", "fp5"}},
		"/blog/c": {Views: 2, SeenFingerprints: []domain.Fingerprint{"fp1", "fp2"}},
	}))

	pages, err := tracker.ListPageViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.PageViews{
		{Slug: "/blog/b", Views: 5, UniqueVisitors: 5},
		{Slug: "/blog/a", Views: 2, UniqueVisitors: 2},
		{Slug: "/blog/c", Views: 2, UniqueVisitors: 2},
	}, pages)
}

func TestViewTracker_ListUnsupported(t *testing.T) {
	tracker := NewViewTracker(&mockViewStore{}, logger.Nop(), false)

	_, err := tracker.ListPageViews(context.Background())
	assert.True(t, errors.Is(err, ErrListingUnsupported))
}

func TestShortFingerprint(t *testing.T) {
	assert.Equal(t, "abcdef01...", shortFingerprint("abcdef0123456789"))
	assert.Equal(t, "abc", shortFingerprint("abc"))
}
