package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBuilder_Environment_Prefixes(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{
			name:           "Production environment should use prod prefix",
			environment:    "production",
			expectedPrefix: "prod",
		},
		{
			name:           "Development environment should use staging prefix",
			environment:    "development",
			expectedPrefix: "staging",
		},
		{
			name:           "Staging environment should use staging prefix",
			environment:    "staging",
			expectedPrefix: "staging",
		},
		{
			name:           "Unknown environment should default to prod prefix",
			environment:    "unknown",
			expectedPrefix: "prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			if kb.GetPrefix() != tt.expectedPrefix {
				t.Errorf("NewKeyBuilder(%s).GetPrefix() = %s, want %s",
					tt.environment, kb.GetPrefix(), tt.expectedPrefix)
			}
		})
	}
}

func TestKeyBuilder_PageViews(t *testing.T) {
	kb := NewKeyBuilder("production")

	assert.Equal(t, "prod:views:/blog/a", kb.KeyPageViews("/blog/a"))
	assert.Equal(t, "prod:views:*", kb.PatternPageViews())
}

func TestKeyBuilder_PageKeyFromViewsKey(t *testing.T) {
	kb := NewKeyBuilder("staging")

	pageKey, ok := kb.PageKeyFromViewsKey(kb.KeyPageViews("projects/ray-tracer"))
	assert.True(t, ok)
	assert.Equal(t, "projects/ray-tracer", pageKey)

	_, ok = kb.PageKeyFromViewsKey("prod:views:projects/ray-tracer")
	assert.False(t, ok, "keys from another environment must not match")
}
