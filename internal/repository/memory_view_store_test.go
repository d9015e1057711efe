package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-be/internal/domain"
)

func TestMemoryViewStore_CopiesRecords(t *testing.T) {
	store := NewMemoryViewStore()
	ctx := context.Background()

	in := domain.NewViewRecord("fp1")
	require.NoError(t, store.Put(ctx, "/blog/a", in))

	in.Views = 99
	in.SeenFingerprints[0] = "mutated"

	out, err := store.Get(ctx, "/blog/a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Views)
	assert.Equal(t, []domain.Fingerprint{"fp1"}, out.SeenFingerprints)
}

func TestMemoryViewStore_RecordUnique(t *testing.T) {
	store := NewMemoryViewStore()
	ctx := context.Background()

	for i, tc := range []struct {
		fp       domain.Fingerprint
		expected int64
	}{
		{"fp1", 1},
		{"fp1", 1},
		{"fp2", 2},
		{"fp3", 3},
		{"fp2", 3},
	} {
		views, err := store.RecordUnique(ctx, "/blog/a", tc.fp)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, tc.expected, views, "step %d", i)
	}
}

func TestMemoryViewStore_CancelledContext(t *testing.T) {
	store := NewMemoryViewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "/blog/a")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryViewStore_ListAndPutMany(t *testing.T) {
	store := NewMemoryViewStore()
	ctx := context.Background()

	found, err := store.HasRecords(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	in := map[domain.PageKey]*domain.ViewRecord{
		"/blog/a": domain.NewViewRecord("fp1"),
		"/blog/b": {Views: 2, SeenFingerprints: []domain.Fingerprint{"fp1", "fp2"}},
	}
	require.NoError(t, store.PutMany(ctx, in))

	found, err = store.HasRecords(ctx)
	require.NoError(t, err)
	assert.True(t, found)

	out, err := store.ListRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
