package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saucelist/saucelist/internal/codec"
	"github.com/saucelist/saucelist/internal/config"
	"github.com/saucelist/saucelist/internal/server"
	"github.com/saucelist/saucelist/internal/storage"
	"github.com/saucelist/saucelist/internal/storage/memory"
	"github.com/saucelist/saucelist/internal/storage/sqldb"
	"github.com/saucelist/saucelist/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdown, err := telemetry.Init(logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The review id codec refuses an empty secret; this is the one
	// misconfiguration that must stop the process rather than degrade.
	idCodec, err := codec.NewReviewIDCodec(cfg.HashID.Secret)
	if err != nil {
		log.Fatalf("Failed to initialize review id codec: %v", err)
	}

	var store storage.RecordStore
	switch cfg.Storage.Driver {
	case "memory":
		store = memory.New()
	default:
		store, err = sqldb.New(sqldb.Config{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
	}
	defer store.Close()

	srv := server.New(cfg.Server.Port, cfg.RequestTimeout(), logger)
	srv.MountRoutes(store, idCodec)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("saucelist started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Driver),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	case <-sigChan:
	}

	logger.Info("Shutdown signal received, stopping server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Server shutdown complete")
}
