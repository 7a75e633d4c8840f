package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-map-pipeline/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/quake-map-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/quake-map-pipeline/internal/adapter/usgs"
	"github.com/couchcryptid/quake-map-pipeline/internal/cache"
	"github.com/couchcryptid/quake-map-pipeline/internal/config"
	"github.com/couchcryptid/quake-map-pipeline/internal/observability"
	"github.com/couchcryptid/quake-map-pipeline/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Durable cache tier. Losing it degrades to memory-only caching, it
	// never blocks startup.
	var durable cache.Store
	store, err := cache.NewBoltStore(cfg.CachePath)
	if err != nil {
		logger.Warn("durable cache unavailable, continuing memory-only", "path", cfg.CachePath, "error", err)
	} else {
		durable = store
	}
	tiered := cache.NewTiered(durable, cfg.CacheMaxEntries, clockwork.NewRealClock(), logger, metrics)

	client := usgs.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout, cfg.CacheTTL, tiered, logger, metrics)

	// Snapshot publishing is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSnapshotTopic, logger)
		publisher = writer
		logger.Info("kafka snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic)
	} else {
		logger.Info("kafka snapshot publishing disabled")
	}

	orch := pipeline.New(client, publisher, logger, metrics, pipeline.Options{
		BoundsDebounce: cfg.BoundsDebounce,
		FilterDebounce: cfg.FilterDebounce,
		ResultCap:      cfg.ResultCap,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, tiered, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the pipeline.
	go func() {
		if err := orch.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if durable != nil {
		if err := durable.Close(); err != nil {
			logger.Error("cache close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
