package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"postgres://u:p@localhost:5432/views", "pgx5://u:p@localhost:5432/views"},
		{"postgresql://u@db/views?sslmode=disable", "pgx5://u@db/views?sslmode=disable"},
		{"pgx5://u@db/views", "pgx5://u@db/views"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, MigrateURL(tt.in))
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
