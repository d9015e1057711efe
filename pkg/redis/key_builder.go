package redis

import (
	"fmt"
	"strings"
)

// Key patterns, relative to the environment prefix
const (
	KeyPageViews = "views:%s" // views:{pageKey}
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyPageViews returns the key holding a page's view record
func (kb *KeyBuilder) KeyPageViews(pageKey string) string {
	return kb.BuildKey(fmt.Sprintf(KeyPageViews, pageKey))
}

// PatternPageViews matches every view record key in this environment
func (kb *KeyBuilder) PatternPageViews() string {
	return kb.BuildKey(fmt.Sprintf(KeyPageViews, "*"))
}

// PageKeyFromViewsKey reverses KeyPageViews. ok is false for foreign keys.
func (kb *KeyBuilder) PageKeyFromViewsKey(key string) (string, bool) {
	return strings.CutPrefix(key, kb.BuildKey(fmt.Sprintf(KeyPageViews, "")))
}
