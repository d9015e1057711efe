package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/repository"
	"portfolio-be/pkg/logger"
)

// DefaultSnapshotSchedule copies Redis into Postgres every five minutes
const DefaultSnapshotSchedule = "@every 5m"

// SnapshotStore is a store that can be copied wholesale in either direction
type SnapshotStore interface {
	repository.ViewLister
	repository.BulkWriter
}

// snapshotService periodically copies every view record from the primary
// store to a durable sink, and seeds an empty primary from the sink at start.
type snapshotService struct {
	source   SnapshotStore
	sink     SnapshotStore
	schedule string
	logger   *logger.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewSnapshotService creates a snapshot service. An empty schedule uses DefaultSnapshotSchedule.
func NewSnapshotService(source, sink SnapshotStore, schedule string, log *logger.Logger) SnapshotService {
	if schedule == "" {
		schedule = DefaultSnapshotSchedule
	}

	return &snapshotService{
		source:   source,
		sink:     sink,
		schedule: schedule,
		logger:   log.Named("snapshot"),
	}
}

// Start restores an empty primary and schedules periodic snapshots
func (s *snapshotService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if _, err := s.Restore(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to restore from snapshot, continuing with current counters")
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(s.schedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Snapshot(jobCtx); err != nil {
			s.logger.WithError(err).Error("Failed to save periodic snapshot")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.cron = c
	s.isRunning = true

	s.logger.WithField("schedule", s.schedule).Info("Snapshot service started")
	return nil
}

// Stop waits for a running job, then saves a final snapshot
func (s *snapshotService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return fmt.Errorf("waiting for snapshot job: %w", ctx.Err())
	}

	s.isRunning = false

	if _, err := s.Snapshot(ctx); err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}

	s.logger.Info("Snapshot service stopped")
	return nil
}

// Snapshot copies every record from the primary to the sink
func (s *snapshotService) Snapshot(ctx context.Context) (*domain.SnapshotResult, error) {
	start := time.Now()

	records, err := s.source.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary store: %w", err)
	}

	if err := s.sink.PutMany(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	result := &domain.SnapshotResult{
		Pages:      len(records),
		Duration:   time.Since(start),
		FinishedAt: time.Now().UTC(),
	}

	s.logger.WithFields(map[string]interface{}{
		"pages":    result.Pages,
		"duration": result.Duration,
	}).Debug("View snapshot saved")

	return result, nil
}

// Restore seeds the primary from the sink when the primary holds no pages.
// A primary that already has data is left alone.
func (s *snapshotService) Restore(ctx context.Context) (*domain.SnapshotResult, error) {
	start := time.Now()

	populated, err := s.source.HasRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check primary store: %w", err)
	}
	if populated {
		s.logger.Info("Primary store already has views, skipping restore")
		return &domain.SnapshotResult{Pages: 0, Duration: time.Since(start), FinishedAt: time.Now().UTC()}, nil
	}

	records, err := s.sink.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := s.source.PutMany(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to restore snapshot: %w", err)
	}

	result := &domain.SnapshotResult{
		Pages:      len(records),
		Duration:   time.Since(start),
		FinishedAt: time.Now().UTC(),
	}

	s.logger.WithField("pages", result.Pages).Info("Restored views from snapshot")
	return result, nil
}
