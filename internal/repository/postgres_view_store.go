package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"portfolio-be/internal/domain"
	"portfolio-be/pkg/database"
)

// PostgresViewStore keeps view records in the page_views table
type PostgresViewStore struct {
	db *database.PostgresDB
}

// NewPostgresViewStore creates a view store backed by PostgreSQL
func NewPostgresViewStore(db *database.PostgresDB) *PostgresViewStore {
	return &PostgresViewStore{db: db}
}

// Get retrieves the record for key
func (s *PostgresViewStore) Get(ctx context.Context, key domain.PageKey) (*domain.ViewRecord, error) {
	query := `
		SELECT views, hashed_ips
		FROM page_views
		WHERE page_key = $1
	`

	var views int64
	var hashed []string
	err := s.db.Pool.QueryRow(ctx, query, string(key)).Scan(&views, &hashed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError("get", key, err)
	}

	return &domain.ViewRecord{Views: views, SeenFingerprints: toFingerprints(hashed)}, nil
}

// Put upserts the record for key
func (s *PostgresViewStore) Put(ctx context.Context, key domain.PageKey, record *domain.ViewRecord) error {
	_, err := s.db.Pool.Exec(ctx, upsertQuery, string(key), record.Views, fromFingerprints(record.SeenFingerprints), time.Now().UTC())
	if err != nil {
		return storeError("put", key, err)
	}
	return nil
}

const upsertQuery = `
	INSERT INTO page_views (page_key, views, hashed_ips, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (page_key) DO UPDATE SET
		views = EXCLUDED.views,
		hashed_ips = EXCLUDED.hashed_ips,
		updated_at = EXCLUDED.updated_at
`

// RecordUnique counts fp with one conditional upsert. The update branch is
// skipped when fp is already present, in which case the stored count is read.
func (s *PostgresViewStore) RecordUnique(ctx context.Context, key domain.PageKey, fp domain.Fingerprint) (int64, error) {
	query := `
		INSERT INTO page_views (page_key, views, hashed_ips, updated_at)
		VALUES ($1, 1, ARRAY[$2::text], NOW())
		ON CONFLICT (page_key) DO UPDATE SET
			views = page_views.views + 1,
			hashed_ips = array_append(page_views.hashed_ips, $2::text),
			updated_at = NOW()
		WHERE NOT ($2::text = ANY(page_views.hashed_ips))
		RETURNING views
	`

	var views int64
	err := s.db.Pool.QueryRow(ctx, query, string(key), string(fp)).Scan(&views)
	if err == nil {
		return views, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, storeError("record", key, err)
	}

	err = s.db.Pool.QueryRow(ctx, `SELECT views FROM page_views WHERE page_key = $1`, string(key)).Scan(&views)
	if err != nil {
		return 0, storeError("record", key, err)
	}
	return views, nil
}

// ListRecords loads every page
func (s *PostgresViewStore) ListRecords(ctx context.Context) (map[domain.PageKey]*domain.ViewRecord, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT page_key, views, hashed_ips FROM page_views`)
	if err != nil {
		return nil, storeError("list", "", err)
	}
	defer rows.Close()

	records := make(map[domain.PageKey]*domain.ViewRecord)
	for rows.Next() {
		var key string
		var views int64
		var hashed []string
		if err := rows.Scan(&key, &views, &hashed); err != nil {
			return nil, storeError("scan", "", err)
		}
		records[domain.PageKey(key)] = &domain.ViewRecord{Views: views, SeenFingerprints: toFingerprints(hashed)}
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("list", "", err)
	}
	return records, nil
}

// HasRecords reports whether page_views has any row
func (s *PostgresViewStore) HasRecords(ctx context.Context) (bool, error) {
	var found bool
	if err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM page_views)`).Scan(&found); err != nil {
		return false, storeError("list", "", err)
	}
	return found, nil
}

// PutMany upserts all records in one batch
func (s *PostgresViewStore) PutMany(ctx context.Context, records map[domain.PageKey]*domain.ViewRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for key, record := range records {
		batch.Queue(upsertQuery, string(key), record.Views, fromFingerprints(record.SeenFingerprints), now)
	}

	if err := s.db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return storeError("put many", "", err)
	}
	return nil
}

// Health pings the database
func (s *PostgresViewStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

func toFingerprints(hashed []string) []domain.Fingerprint {
	out := make([]domain.Fingerprint, len(hashed))
	for i, h := range hashed {
		out[i] = domain.Fingerprint(h)
	}
	return out
}

func fromFingerprints(fps []domain.Fingerprint) []string {
	out := make([]string, len(fps))
	for i, fp := range fps {
		out[i] = string(fp)
	}
	return out
}
