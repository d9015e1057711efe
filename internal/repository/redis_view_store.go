package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"portfolio-be/internal/domain"
	"portfolio-be/pkg/redis"
)

// maxWatchRetries bounds optimistic transaction retries on a hot page
const maxWatchRetries = 5

// RedisViewStore keeps one JSON value per page under views:{pageKey}
type RedisViewStore struct {
	client *redis.Client
}

// NewRedisViewStore creates a view store backed by Redis
func NewRedisViewStore(client *redis.Client) *RedisViewStore {
	return &RedisViewStore{client: client}
}

// Get fetches and decodes the record for key. A page written before keys were
// namespaced is read from its bare slug.
func (s *RedisViewStore) Get(ctx context.Context, key domain.PageKey) (*domain.ViewRecord, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key))
	if errors.Is(err, redis.Nil) {
		raw, err = s.client.Get(ctx, legacyKey(key))
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get", key, err)
	}

	record, err := decodeRecord(raw)
	if err != nil {
		return nil, storeError("decode", key, err)
	}
	return record, nil
}

// Put encodes and writes the record for key without expiry, dropping any
// bare-slug copy
func (s *RedisViewStore) Put(ctx context.Context, key domain.PageKey, record *domain.ViewRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return storeError("encode", key, err)
	}

	if err := s.client.Replace(ctx, s.redisKey(key), payload, legacyKey(key)); err != nil {
		return storeError("put", key, err)
	}
	return nil
}

// RecordUnique counts fp under WATCH/MULTI so concurrent first visits cannot
// overwrite each other. A conflicting write makes EXEC fail and the read is
// retried against the new value. A bare-slug record is moved under the
// namespaced key by the first write.
func (s *RedisViewStore) RecordUnique(ctx context.Context, key domain.PageKey, fp domain.Fingerprint) (int64, error) {
	redisKey := s.redisKey(key)
	oldKey := legacyKey(key)
	var views int64

	txf := func(tx *goredis.Tx) error {
		var next *domain.ViewRecord

		raw, err := tx.Get(ctx, redisKey).Result()
		if errors.Is(err, goredis.Nil) {
			raw, err = tx.Get(ctx, oldKey).Result()
		}
		switch {
		case errors.Is(err, goredis.Nil):
			next = domain.NewViewRecord(fp)
		case err != nil:
			return err
		default:
			current, err := decodeRecord(raw)
			if err != nil {
				return err
			}
			if current.HasSeen(fp) {
				views = current.Views
				return nil
			}
			next = current.WithVisitor(fp)
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, redisKey, payload, 0)
			pipe.Del(ctx, oldKey)
			return nil
		})
		if err == nil {
			views = next.Views
		}
		return err
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := s.client.Watch(ctx, txf, redisKey, oldKey)
		if err == nil {
			return views, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return 0, storeError("record", key, err)
	}

	return 0, storeError("record", key, fmt.Errorf("gave up after %d conflicting writes", maxWatchRetries))
}

// ListRecords scans every view key in the current environment. Bare-slug
// records are not listed until their next write.
func (s *RedisViewStore) ListRecords(ctx context.Context) (map[domain.PageKey]*domain.ViewRecord, error) {
	keys, err := s.client.ScanKeys(ctx, s.client.KeyBuilder.PatternPageViews())
	if err != nil {
		return nil, storeError("scan", "", err)
	}

	records := make(map[domain.PageKey]*domain.ViewRecord, len(keys))
	for _, k := range keys {
		pageKey, ok := s.client.KeyBuilder.PageKeyFromViewsKey(k)
		if !ok {
			continue
		}

		record, err := s.Get(ctx, domain.PageKey(pageKey))
		if err != nil {
			return nil, err
		}
		// deleted between SCAN and GET
		if record == nil {
			continue
		}
		records[domain.PageKey(pageKey)] = record
	}

	return records, nil
}

// PutMany writes all records in one pipeline
func (s *RedisViewStore) PutMany(ctx context.Context, records map[domain.PageKey]*domain.ViewRecord) error {
	kv := make(map[string]interface{}, len(records))
	for key, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return storeError("encode", key, err)
		}
		kv[s.redisKey(key)] = payload
	}

	if err := s.client.SetMultiple(ctx, kv, 0); err != nil {
		return storeError("put many", "", err)
	}
	return nil
}

// HasRecords reports whether any view key exists in the current environment
func (s *RedisViewStore) HasRecords(ctx context.Context) (bool, error) {
	found, err := s.client.HasMatch(ctx, s.client.KeyBuilder.PatternPageViews())
	if err != nil {
		return false, storeError("scan", "", err)
	}
	return found, nil
}

// Health pings Redis
func (s *RedisViewStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *RedisViewStore) redisKey(key domain.PageKey) string {
	return s.client.KeyBuilder.KeyPageViews(string(key))
}

// legacyKey is where records were kept before keys carried an environment prefix
func legacyKey(key domain.PageKey) string {
	return string(key)
}

func decodeRecord(raw string) (*domain.ViewRecord, error) {
	var record domain.ViewRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("malformed view record: %w", err)
	}
	if record.SeenFingerprints == nil {
		record.SeenFingerprints = []domain.Fingerprint{}
	}
	return &record, nil
}
