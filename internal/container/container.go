package container

import (
	"context"
	"fmt"

	"portfolio-be/internal/config"
	"portfolio-be/internal/handler"
	"portfolio-be/internal/repository"
	"portfolio-be/internal/service"
	"portfolio-be/pkg/database"
	"portfolio-be/pkg/logger"
	"portfolio-be/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	DB          *database.PostgresDB

	Store     repository.ViewStore
	Tracker   service.ViewTracker
	Snapshots service.SnapshotService

	primaryChecks   map[string]handler.HealthChecker
	auxiliaryChecks map[string]handler.HealthChecker
}

// New connects the configured store and builds the services on top of it.
// Connections opened before a failure are closed again.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (c *Container, err error) {
	c = &Container{
		Config: cfg,
		Logger: log,
		primaryChecks:   make(map[string]handler.HealthChecker),
		auxiliaryChecks: make(map[string]handler.HealthChecker),
	}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	switch cfg.StoreBackend {
	case config.BackendRedis:
		if err = c.connectRedis(); err != nil {
			return c, err
		}
		redisStore := repository.NewRedisViewStore(c.RedisClient)
		c.Store = redisStore
		c.primaryChecks["redis"] = c.RedisClient

		if cfg.SnapshotsEnabled() {
			if err = c.connectPostgres(ctx); err != nil {
				return c, err
			}
			c.Snapshots = service.NewSnapshotService(
				redisStore,
				repository.NewPostgresViewStore(c.DB),
				cfg.SnapshotSchedule,
				log,
			)
			c.auxiliaryChecks["postgres"] = c.DB
		}

	case config.BackendPostgres:
		if err = c.connectPostgres(ctx); err != nil {
			return c, err
		}
		c.Store = repository.NewPostgresViewStore(c.DB)
		c.primaryChecks["postgres"] = c.DB

	case config.BackendMemory:
		log.Warn("Using in-memory view store, counts are lost on restart")
		c.Store = repository.NewMemoryViewStore()

	default:
		return c, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	c.Tracker = service.NewViewTracker(c.Store, log, cfg.AtomicViews)

	log.WithFields(map[string]interface{}{
		"backend":   cfg.StoreBackend,
		"atomic":    cfg.AtomicViews,
		"snapshots": c.Snapshots != nil,
	}).Info("View store initialized")

	return c, nil
}

func (c *Container) connectRedis() error {
	client, err := redis.NewClient(c.Config.RedisURL, c.Config.Environment, c.Logger.Named("redis").Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	c.RedisClient = client
	c.Logger.WithField("key_prefix", client.KeyBuilder.GetPrefix()).Info("Redis client initialized successfully")
	return nil
}

func (c *Container) connectPostgres(ctx context.Context) error {
	changed, err := database.MigrateUp(c.Config.DatabaseURL)
	if err != nil {
		return err
	}
	if changed {
		c.Logger.Info("Database migrations applied")
	}

	db, err := database.NewPostgresDB(ctx, c.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db
	c.Logger.Info("Database connection pool initialized successfully")
	return nil
}

// HealthChecks returns the dependencies /health should check: the primary
// store, and auxiliary ones such as the snapshot sink
func (c *Container) HealthChecks() (primary, auxiliary map[string]handler.HealthChecker) {
	return c.primaryChecks, c.auxiliaryChecks
}

// Close releases every connection the container opened
func (c *Container) Close() {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.WithError(err).Error("Failed to close Redis connection")
		}
		c.RedisClient = nil
	}
	if c.DB != nil {
		c.DB.Close()
		c.DB = nil
	}
}
