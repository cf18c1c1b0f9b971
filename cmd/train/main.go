// Command train runs the attrition training pipeline once and persists the
// selected model into the artifacts directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mimir-aip/attrition-risk/pkg/artifacts"
	"github.com/mimir-aip/attrition-risk/pkg/config"
	"github.com/mimir-aip/attrition-risk/pkg/logging"
	"github.com/mimir-aip/attrition-risk/pkg/metadatastore"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/training"
	"github.com/mimir-aip/attrition-risk/pkg/pipeline"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	dataPath := flag.String("data", cfg.DataPath, "path to the HR CSV extract")
	outDir := flag.String("out", cfg.ArtifactsDir, "directory receiving the model artifacts")
	plotsDir := flag.String("plots", cfg.PlotsDir, "directory receiving the EDA charts")
	skipEDA := flag.Bool("skip-eda", false, "skip the exploratory summary and charts")
	noHistory := flag.Bool("no-history", false, "do not record the run in the training history")
	flag.Parse()

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat).With(logging.Component("train"))

	opts := pipeline.OptionsFromConfig(cfg)
	opts.PlotsDir = *plotsDir
	opts.SkipEDA = *skipEDA
	historyDB := cfg.HistoryDB
	if *noHistory {
		historyDB = ""
	}

	report, err := run(*dataPath, *outDir, historyDB, opts, logger)
	if err != nil {
		logger.Error("training failed", err)
		os.Exit(1)
	}

	fmt.Println()
	training.WriteLeaderboard(os.Stdout, report.Result.Leaderboard(), report.Result.Best.Name)
	if t := report.Result.Tuning; t != nil {
		fmt.Printf("\nXGBoost best CV ROC-AUC %.4f over %d combinations: %v\n", t.BestCVScore, t.Combinations, t.BestParams)
	}
	fmt.Println()
	if err := training.WriteROC(os.Stdout, report.Result.Best, report.Result.YTest, 60); err != nil {
		logger.Warn("failed to draw ROC curve", logging.String("error", err.Error()))
	}
	fmt.Printf("\nBest model: %s (ROC-AUC %.4f)\n", report.Run.BestModel, report.Run.TestROCAUC)
	fmt.Printf("Artifacts saved to %s (run %s)\n", *outDir, report.Run.ID)
	if len(report.Plots) > 0 {
		fmt.Printf("Charts saved to %s\n", *plotsDir)
	}
}

// run executes one pipeline run; an empty historyDB disables the history
func run(dataPath, outDir, historyDB string, opts pipeline.Options, logger *logging.Logger) (*pipeline.Report, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var history metadatastore.MetadataStore
	if historyDB != "" {
		if err := os.MkdirAll(filepath.Dir(historyDB), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		store, err := metadatastore.NewSQLiteStore(historyDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open training history: %w", err)
		}
		defer store.Close()
		history = store
	}

	p := pipeline.New(artifacts.NewStore(outDir), history, nil, logger, opts)
	return p.Run(ctx, dataPath)
}
