// Command server runs the OncoVista OPD HTTP API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/oncovista-opd-server/internal/api"
	"github.com/oncovista-opd-server/internal/cache"
	"github.com/oncovista-opd-server/internal/config"
	"github.com/oncovista-opd-server/internal/database"
	"github.com/oncovista-opd-server/internal/domain"
	"github.com/oncovista-opd-server/internal/feedback"
	"github.com/oncovista-opd-server/internal/metrics"
	"github.com/oncovista-opd-server/internal/repository"
	"github.com/oncovista-opd-server/internal/service"
)

// Version is injected via ldflags
var Version = ""

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// "server migrate up|down|version" manages the history schema and exits
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := migrateCommand(context.Background(), configManager, logger, os.Args[2:]); err != nil {
			logger.WithError(err).Fatal("Migration failed")
		}
		return
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()
	checks := map[string]api.HealthCheck{}

	collector := metrics.NewCollector(metrics.Options{GoMetrics: true, ProcessMetrics: true})
	opts := service.AssessmentServiceOptions{Metrics: collector}

	// Assessment history is optional
	if cfg.Database.Host != "" {
		db, err := openHistory(ctx, configManager, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		opts.Repository = repository.NewAssessmentRepository(db.Pool, logger)
		checks["database"] = db.Health
	} else {
		logger.Warn("database.host is empty; assessment history is disabled")
	}

	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		var remote cache.RemoteStore
		if cfg.Cache.RedisURL != "" {
			redisStore, err := cache.NewRedisStore(cfg.Cache)
			if err != nil {
				return err
			}
			defer redisStore.Close()

			remote = redisStore
			checks["redis"] = redisStore.Ping
		}
		resultCache = cache.New(cfg.Cache, remote, logger)
		opts.Cache = resultCache
	}

	feedbackStore, err := openFeedback(cfg, configManager.GetDatabaseConnectionString())
	if err != nil {
		return err
	}
	if feedbackStore != nil {
		defer feedbackStore.Close()
	}

	svc := service.NewAssessmentService(logger, opts)

	logger.WithFields(logrus.Fields{
		"host":     cfg.Server.Host,
		"port":     cfg.Server.Port,
		"history":  svc.HistoryEnabled(),
		"cache":    cfg.Cache.Enabled,
		"redis":    cfg.Cache.RedisURL != "",
		"feedback": cfg.Feedback.Backend,
	}).Info("Starting OncoVista OPD API server")

	server := api.NewServer(configManager, logger, api.Dependencies{
		Service:  svc,
		Feedback: feedbackStore,
		Metrics:  collector,
		Cache:    resultCache,
		Checks:   checks,
		Version:  Version,
	})

	return server.Start(ctx)
}

func openHistory(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) (*database.DB, error) {
	cfg := configManager.GetConfig()

	runner, err := database.NewMigrationRunner(configManager.GetDatabaseConnectionString(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	return db, nil
}

func openFeedback(cfg *domain.Config, databaseURL string) (feedback.Store, error) {
	switch cfg.Feedback.Backend {
	case "sqlite":
		store, err := feedback.NewSQLiteStore(cfg.Feedback.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open feedback store: %w", err)
		}
		return store, nil
	case "postgres":
		// The feedback table is created by the history migrations
		store, err := feedback.NewPostgresStoreFromURL(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open feedback store: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

func migrateCommand(ctx context.Context, configManager *config.Manager, logger *logrus.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: server migrate up|down|version")
	}
	databaseURL := configManager.GetDatabaseConnectionString()
	if databaseURL == "" {
		return fmt.Errorf("database.host is not configured")
	}

	runner, err := database.NewMigrationRunner(databaseURL, configManager.GetConfig().Database.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	switch args[0] {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "version":
		version, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
}
