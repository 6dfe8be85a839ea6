// Command mcp-server serves the OncoVista OPD tools over MCP stdio. It needs no
// database: results are cached in memory and feedback is kept in SQLite.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/oncovista-opd-server/internal/cache"
	"github.com/oncovista-opd-server/internal/config"
	"github.com/oncovista-opd-server/internal/feedback"
	"github.com/oncovista-opd-server/internal/mcp"
	"github.com/oncovista-opd-server/internal/service"
)

// Version is injected via ldflags
var Version = "v0.1.0"

func main() {
	cfg := config.LoadLiteConfig()

	logger, err := config.NewLogger(cfg.LoggingConfig())
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	if cfg.Transport != "stdio" {
		logger.WithField("transport", cfg.Transport).Fatal("Only the stdio transport is supported")
	}

	if err := cfg.EnsureDataDir(); err != nil {
		logger.WithError(err).Fatal("Failed to create data directory")
	}

	var remote cache.RemoteStore
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedisStore(cfg.CacheConfig())
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, caching in memory only")
		} else {
			defer redisStore.Close()
			remote = redisStore
		}
	}

	store, err := feedback.NewSQLiteStore(cfg.FeedbackDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}

	svc := service.NewAssessmentService(logger, service.AssessmentServiceOptions{
		Cache: cache.New(cfg.CacheConfig(), remote, logger),
	})

	server := mcp.NewServer(svc, logger, mcp.Options{
		Version:   Version,
		Feedback:  store,
		ExportDir: cfg.ExportDir(),
	})
	defer server.Close()

	logger.WithFields(logrus.Fields{
		"data_dir": cfg.DataDir,
		"redis":    remote != nil,
	}).Info("OncoVista OPD MCP server configured")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("MCP server stopped with error")
		return
	}

	logger.Info("OncoVista OPD MCP server stopped")
}
