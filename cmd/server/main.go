package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mimir-aip/attrition-risk/pkg/api"
	"github.com/mimir-aip/attrition-risk/pkg/artifacts"
	"github.com/mimir-aip/attrition-risk/pkg/config"
	"github.com/mimir-aip/attrition-risk/pkg/logging"
	"github.com/mimir-aip/attrition-risk/pkg/metadatastore"
	"github.com/mimir-aip/attrition-risk/pkg/metrics"
	"github.com/mimir-aip/attrition-risk/pkg/pipeline"
	"github.com/mimir-aip/attrition-risk/pkg/prediction"
	"github.com/mimir-aip/attrition-risk/pkg/scheduler"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.New(os.Stderr, "info", "console").Error("failed to load config", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With(logging.Component("server"))
	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("starting attrition risk server", logging.String("environment", cfg.Environment))

	if err := os.MkdirAll(filepath.Dir(cfg.HistoryDB), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	history, err := metadatastore.NewSQLiteStore(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open training history: %w", err)
	}
	defer history.Close()
	logger.Info("initialized SQLite training history", logging.String("path", cfg.HistoryDB))

	m := metrics.New()
	store := artifacts.NewStore(cfg.ArtifactsDir)
	predictions := prediction.NewService(store, logger, m)
	if !predictions.Ready() {
		logger.Warn("no trained model found, /predict returns 503 until training runs",
			logging.String("artifacts_dir", cfg.ArtifactsDir))
	}

	if cfg.Training.Schedule != "" {
		p := pipeline.New(store, history, m, logger, pipeline.OptionsFromConfig(cfg))
		retrain, err := scheduler.NewService(cfg.Training.Schedule, cfg.DataPath, p, predictions, logger)
		if err != nil {
			return err
		}
		retrain.Start()
		defer retrain.Stop()
	}

	server := api.NewServer(
		cfg.Port,
		api.NewPredictionHandler(predictions, predictions, logger),
		api.NewTrainingRunHandler(history),
		m,
		logger,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}
