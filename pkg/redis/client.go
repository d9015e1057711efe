package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Nil is returned by Get when the key does not exist
const Nil = redis.Nil

// TxFailedErr is returned by Watch when a watched key changed before EXEC
const TxFailedErr = redis.TxFailedErr

type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(redisURL string, environment string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Get retrieves a value from Redis. A missing key returns Nil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Result()
	dur := time.Since(start)
	if err != nil && err != redis.Nil {
		c.log.Info("redis_get",
			zap.String("key_prefix", prefixForLog(key)),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_get",
			zap.String("key_prefix", prefixForLog(key)),
			zap.Bool("hit", err == nil),
			zap.Duration("duration", dur))
	}
	return val, err
}

// Replace sets key and deletes oldKey in one MULTI/EXEC
func (c *Client) Replace(ctx context.Context, key string, value interface{}, oldKey string) error {
	start := time.Now()
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		pipe.Del(ctx, oldKey)
		return nil
	})
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_replace",
			zap.String("key_prefix", prefixForLog(key)),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_replace",
			zap.String("key_prefix", prefixForLog(key)),
			zap.Duration("duration", dur))
	}
	return err
}

// Watch runs fn in an optimistic transaction over keys. Returns TxFailedErr
// when one of the keys was modified by another client before EXEC.
func (c *Client) Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	start := time.Now()
	err := c.rdb.Watch(ctx, fn, keys...)
	dur := time.Since(start)
	if err != nil && err != redis.TxFailedErr {
		c.log.Info("redis_watch",
			zap.Int("keys", len(keys)),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_watch",
			zap.Int("keys", len(keys)),
			zap.Bool("conflict", err == redis.TxFailedErr),
			zap.Duration("duration", dur))
	}
	return err
}

// ScanKeys returns every key matching pattern using SCAN, never KEYS
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	start := time.Now()
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	err := iter.Err()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_scan",
			zap.String("pattern", pattern),
			zap.Duration("duration", dur),
			zap.Error(err))
		return nil, err
	}
	c.log.Debug("redis_scan",
		zap.String("pattern", pattern),
		zap.Int("keys", len(keys)),
		zap.Duration("duration", dur))
	return keys, nil
}

// HasMatch reports whether at least one key matches pattern. The SCAN stops
// at the first match.
func (c *Client) HasMatch(ctx context.Context, pattern string) (bool, error) {
	start := time.Now()
	iter := c.rdb.Scan(ctx, 0, pattern, 200).Iterator()
	found := iter.Next(ctx)
	err := iter.Err()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_scan",
			zap.String("pattern", pattern),
			zap.Duration("duration", dur),
			zap.Error(err))
		return false, err
	}
	c.log.Debug("redis_scan",
		zap.String("pattern", pattern),
		zap.Bool("found", found),
		zap.Duration("duration", dur))
	return found, nil
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_ping",
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_ping", zap.Duration("duration", dur))
	}
	return err
}

// Pipeline creates a new pipeline for batch operations
func (c *Client) Pipeline() redis.Pipeliner {
	return c.rdb.Pipeline()
}

// SetMultiple sets multiple key-value pairs with the same TTL in one round trip
func (c *Client) SetMultiple(ctx context.Context, kvPairs map[string]interface{}, ttl time.Duration) error {
	if len(kvPairs) == 0 {
		return nil
	}
	pipe := c.Pipeline()
	for key, value := range kvPairs {
		pipe.Set(ctx, key, value, ttl)
	}
	start := time.Now()
	_, err := pipe.Exec(ctx)
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_set_multiple",
			zap.Int("keys", len(kvPairs)),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_set_multiple",
			zap.Int("keys", len(kvPairs)),
			zap.Duration("duration", dur))
	}
	return err
}

// prefixForLog returns a safe prefix of a key to avoid logging long slugs
func prefixForLog(key string) string {
	if len(key) <= 24 {
		return key
	}
	return key[:24] + "…"
}
