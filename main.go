package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"portfolio-be/internal/config"
	"portfolio-be/internal/container"
	"portfolio-be/internal/handler"
	"portfolio-be/internal/middleware"
	"portfolio-be/internal/service"
	"portfolio-be/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// Resources holds all resources that need cleanup
type Resources struct {
	container   *container.Container
	snapshots   service.SnapshotService
	rateLimiter *middleware.RateLimiter
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the final snapshot
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	if r.rateLimiter != nil {
		r.rateLimiter.Close()
	}

	if r.snapshots != nil {
		r.log.Info("Stopping snapshot service...")
		if err := r.snapshots.Stop(ctx); err != nil {
			r.log.WithError(err).Error("Failed to stop snapshot service")
			errs = append(errs, fmt.Errorf("snapshot service shutdown: %w", err))
		} else {
			r.log.Info("Snapshot service stopped successfully")
		}
	}

	if r.container != nil {
		r.container.Close()
		r.log.Info("Store connections closed")
	}

	if len(errs) > 0 {
		r.log.WithField("error_count", len(errs)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %w", len(errs), errors.Join(errs...))
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Println("portfolio-be: page view counter\n\nEnvironment:")
		fmt.Println(config.Usage())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"backend":     cfg.StoreBackend,
		"version":     version,
	}).Info("Starting portfolio-be server")

	if cfg.IPHashKey == "" {
		entry := log.WithField("setting", "IP_HASH_KEY")
		if cfg.IsProduction() {
			entry.Warn("No fingerprint key set, visitor addresses are hashed without a secret")
		} else {
			entry.Info("No fingerprint key set, using unkeyed SHA-256")
		}
	}

	ctx := context.Background()

	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	if c.Snapshots != nil {
		if err := c.Snapshots.Start(ctx); err != nil {
			c.Close()
			log.WithError(err).Fatal("Failed to start snapshot service")
		}
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, log.Named("rate_limit"))
	}

	router := setupRouter(c, rateLimiter)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	resources := &Resources{
		container:   c,
		snapshots:   c.Snapshots,
		rateLimiter: rateLimiter,
		server:      server,
		log:         log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container, rateLimiter *middleware.RateLimiter) *chi.Mux {
	cfg := c.Config
	log := c.Logger

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Origins()

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log.Named("http")))
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(15 * time.Second))

	primaryChecks, auxiliaryChecks := c.HealthChecks()
	healthHandler := handler.NewHealthHandler(primaryChecks, auxiliaryChecks, version, log)
	viewHandler := handler.NewViewHandler(c.Tracker, cfg.IPHashKey, log)

	r.Get("/health", healthHandler.Check)

	var recordLimiter func(http.Handler) http.Handler
	if rateLimiter != nil {
		recordLimiter = rateLimiter.Middleware
	}
	viewHandler.RegisterRoutes(r, recordLimiter)

	if cfg.AdminJWTSecret != "" {
		adminHandler := handler.NewAdminHandler(c.Tracker, c.Snapshots, log)
		adminHandler.RegisterRoutes(r, middleware.AdminAuth(cfg.AdminJWTSecret, log.Named("admin_auth")))
	} else {
		log.Info("ADMIN_JWT_SECRET not set, admin routes disabled")
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
