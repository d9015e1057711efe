package container

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-be/internal/config"
	"portfolio-be/internal/repository"
	"portfolio-be/pkg/logger"
)

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		config      *config.Config
		expectRedis bool
		expectError bool
	}{
		{
			name: "Redis backend",
			config: &config.Config{
				Environment:  "development",
				StoreBackend: config.BackendRedis,
				RedisURL:     "redis://" + mr.Addr(),
				AtomicViews:  true,
			},
			expectRedis: true,
		},
		{
			name: "Memory backend",
			config: &config.Config{
				Environment:  "development",
				StoreBackend: config.BackendMemory,
			},
		},
		{
			name: "Redis backend with invalid URL",
			config: &config.Config{
				Environment:  "development",
				StoreBackend: config.BackendRedis,
				RedisURL:     "invalid://redis-url",
			},
			expectError: true,
		},
		{
			name: "Unknown backend",
			config: &config.Config{
				StoreBackend: "etcd",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(context.Background(), tt.config, logger.Nop())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, c)
			t.Cleanup(c.Close)

			assert.NotNil(t, c.Store)
			assert.NotNil(t, c.Tracker)
			assert.Nil(t, c.Snapshots)
			assert.Equal(t, tt.expectRedis, c.RedisClient != nil)
			primary, auxiliary := c.HealthChecks()
			assert.Equal(t, tt.expectRedis, primary["redis"] != nil)
			assert.Empty(t, auxiliary)
		})
	}
}

func TestNew_TrackerUsesStore(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), &config.Config{
		Environment:  "production",
		StoreBackend: config.BackendRedis,
		RedisURL:     "redis://" + mr.Addr(),
		AtomicViews:  true,
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	ctx := context.Background()
	views, err := c.Tracker.RecordView(ctx, "/blog/a", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), views)

	assert.True(t, mr.Exists("prod:views:/blog/a"))
	_, ok := c.Store.(*repository.RedisViewStore)
	assert.True(t, ok)
}

func TestClose_Idempotent(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), &config.Config{
		StoreBackend: config.BackendRedis,
		RedisURL:     "redis://" + mr.Addr(),
	}, logger.Nop())
	require.NoError(t, err)

	c.Close()
	c.Close()
	assert.Nil(t, c.RedisClient)
}
