// Package pipeline runs the end-to-end training job: read, clean, explore,
// engineer, preprocess, train, persist and record the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mimir-aip/attrition-risk/pkg/artifacts"
	"github.com/mimir-aip/attrition-risk/pkg/cleaning"
	"github.com/mimir-aip/attrition-risk/pkg/config"
	"github.com/mimir-aip/attrition-risk/pkg/dataset"
	"github.com/mimir-aip/attrition-risk/pkg/eda"
	"github.com/mimir-aip/attrition-risk/pkg/features"
	"github.com/mimir-aip/attrition-risk/pkg/logging"
	"github.com/mimir-aip/attrition-risk/pkg/metadatastore"
	"github.com/mimir-aip/attrition-risk/pkg/metrics"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/evaluation"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/training"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/tuning"
	"github.com/mimir-aip/attrition-risk/pkg/models"
	"github.com/mimir-aip/attrition-risk/pkg/preprocess"
)

// ErrTrainingFailed wraps the cause of any failed run
var ErrTrainingFailed = errors.New("training failed")

// ROCPlotFile is written into the plots directory next to the EDA charts
const ROCPlotFile = "08_roc_curves.png"

// Options configures a Pipeline
type Options struct {
	Target   string
	Cleaning cleaning.Options
	Split    preprocess.Options
	Training training.Config
	// PlotsDir receives the EDA and ROC charts; empty disables them
	PlotsDir string
	SkipEDA  bool
}

// DefaultOptions returns the IBM HR defaults
func DefaultOptions() Options {
	return Options{
		Target:   "Attrition",
		Cleaning: cleaning.DefaultOptions(),
		Split:    preprocess.DefaultOptions(),
		Training: training.DefaultConfig(),
		PlotsDir: "reports/plots",
	}
}

// OptionsFromConfig maps the application configuration onto pipeline options
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.PlotsDir = cfg.PlotsDir
	opts.Split.TestFraction = cfg.Training.TestFraction
	opts.Split.Seed = cfg.Training.Seed
	opts.Training.Seed = cfg.Training.Seed
	opts.Training.CVFolds = cfg.Training.CVFolds
	opts.Training.Workers = cfg.Training.Workers
	if len(cfg.Training.Grid) > 0 {
		opts.Training.Grid = tuning.GridFromMap(cfg.Training.Grid)
	}
	return opts
}

// Report is the outcome of a successful run
type Report struct {
	Run     *models.TrainingRun
	Result  *training.Result
	Summary *eda.Summary
	Plots   []string
}

// Pipeline executes training runs. Runs are serialised: a second Run
// waits for the first to finish.
type Pipeline struct {
	store   *artifacts.Store
	history metadatastore.MetadataStore
	metrics *metrics.Metrics
	logger  *logging.Logger
	opts    Options

	mu sync.Mutex
}

// New creates a pipeline persisting into store. history and m may be nil.
func New(store *artifacts.Store, history metadatastore.MetadataStore, m *metrics.Metrics, logger *logging.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pipeline{
		store:   store,
		history: history,
		metrics: m,
		logger:  logger.With(logging.Component("pipeline")),
		opts:    opts,
	}
}

// state carries intermediate results between steps
type state struct {
	dataPath   string
	runID      string
	raw        *dataset.Table
	cleaned    *dataset.Table
	engineered *dataset.Table
	split      *preprocess.Split
	report     *Report
	metadata   *models.ModelMetadata
}

type step struct {
	name string
	run  func(ctx context.Context, st *state) error
}

func (p *Pipeline) steps() []step {
	return []step{
		{"load", p.load},
		{"clean", p.clean},
		{"eda", p.explore},
		{"engineer", p.engineer},
		{"preprocess", p.preprocess},
		{"train", p.train},
		{"persist", p.persist},
	}
}

// Run trains on the CSV at dataPath and persists the selected model. A
// failing run returns an error wrapping ErrTrainingFailed and leaves any
// previously persisted artifacts untouched.
func (p *Pipeline) Run(ctx context.Context, dataPath string) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	run := &models.TrainingRun{
		ID:        uuid.New().String(),
		Status:    models.RunStatusRunning,
		DataPath:  dataPath,
		StartedAt: time.Now().UTC(),
	}
	st := &state{dataPath: dataPath, runID: run.ID, report: &Report{Run: run}}
	logger := p.logger.With(logging.String("run_id", run.ID))
	p.record(run)

	logger.Info("training run started", logging.String("data_path", dataPath))
	steps := p.steps()
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(logger, run, s.name, err)
		}
		logger.Debug("step started", logging.Int("step", i+1), logging.String("name", s.name))
		start := time.Now()
		if err := s.run(ctx, st); err != nil {
			return nil, p.fail(logger, run, s.name, err)
		}
		logger.Info("step completed", logging.String("name", s.name), logging.Duration("elapsed", time.Since(start)))
	}

	finished := time.Now().UTC()
	run.Status = models.RunStatusSucceeded
	run.FinishedAt = &finished
	run.BestModel = st.metadata.ModelName
	run.TestROCAUC = st.metadata.Metrics.ROCAUC
	run.Metadata = st.metadata
	p.record(run)
	p.metrics.ObserveTrainingRun(string(run.Status), run.Duration())

	logger.Info("training run succeeded",
		logging.String("model", run.BestModel),
		logging.Float("roc_auc", run.TestROCAUC),
		logging.Duration("elapsed", run.Duration()),
	)
	return st.report, nil
}

func (p *Pipeline) fail(logger *logging.Logger, run *models.TrainingRun, stepName string, cause error) error {
	err := fmt.Errorf("%w: step %s: %w", ErrTrainingFailed, stepName, cause)
	finished := time.Now().UTC()
	run.Status = models.RunStatusFailed
	run.FinishedAt = &finished
	run.Error = err.Error()
	p.record(run)
	p.metrics.ObserveTrainingRun(string(run.Status), run.Duration())
	logger.Error("training run failed", cause, logging.String("step", stepName))
	return err
}

// record writes the run to the history store. History is best effort: a
// failure is logged and does not fail the run.
func (p *Pipeline) record(run *models.TrainingRun) {
	if p.history == nil {
		return
	}
	if err := p.history.SaveRun(run); err != nil {
		p.logger.Warn("failed to record training run", logging.String("run_id", run.ID), logging.String("error", err.Error()))
	}
}

func (p *Pipeline) load(_ context.Context, st *state) error {
	table, err := dataset.ReadCSV(st.dataPath)
	if err != nil {
		return err
	}
	st.raw = table
	p.logger.Info("dataset loaded", logging.Int("rows", table.Len()), logging.Int("columns", table.Width()))
	return nil
}

func (p *Pipeline) clean(_ context.Context, st *state) error {
	opts := p.opts.Cleaning
	opts.Logger = p.logger
	cleaned, err := cleaning.Clean(st.raw, opts)
	if err != nil {
		return err
	}
	st.cleaned = cleaned
	return nil
}

func (p *Pipeline) explore(_ context.Context, st *state) error {
	if p.opts.SkipEDA {
		return nil
	}
	summary, err := eda.Summarize(st.cleaned, p.opts.Target)
	if err != nil {
		return err
	}
	st.report.Summary = summary
	p.logger.Info("attrition summary",
		logging.Int("rows", summary.Rows),
		logging.Int("left", summary.Left),
		logging.Float("attrition_rate", summary.AttritionRate),
	)

	if p.opts.PlotsDir == "" {
		return nil
	}
	plots, err := eda.RenderPlots(summary, st.cleaned, p.opts.Target, p.opts.PlotsDir)
	if err != nil {
		return err
	}
	st.report.Plots = append(st.report.Plots, plots...)
	return nil
}

func (p *Pipeline) engineer(_ context.Context, st *state) error {
	engineered, err := features.Engineer(st.cleaned)
	if err != nil {
		return err
	}
	st.engineered = engineered
	p.logger.Info("features engineered", logging.Int("columns", engineered.Width()))
	return nil
}

func (p *Pipeline) preprocess(_ context.Context, st *state) error {
	opts := p.opts.Split
	opts.Target = p.opts.Target
	split, err := preprocess.Preprocess(st.engineered, opts)
	if err != nil {
		return err
	}
	st.split = split
	p.logger.Info("data split",
		logging.Int("train_rows", len(split.YTrain)),
		logging.Int("test_rows", len(split.YTest)),
		logging.Int("encoded_width", split.Transform.Width()),
	)
	return nil
}

func (p *Pipeline) train(ctx context.Context, st *state) error {
	result, err := training.NewTrainer(p.opts.Training, p.logger).Run(ctx, st.split)
	if err != nil {
		return err
	}
	st.report.Result = result

	if !p.opts.SkipEDA && p.opts.PlotsDir != "" {
		curves := make([]evaluation.Curve, 0, len(result.Candidates))
		for _, c := range result.Candidates {
			curves = append(curves, evaluation.Curve{Name: c.Name, Y: st.split.YTest, Proba: c.Proba})
		}
		path := filepath.Join(p.opts.PlotsDir, ROCPlotFile)
		if err := evaluation.PlotROC(path, curves); err != nil {
			return err
		}
		st.report.Plots = append(st.report.Plots, path)
	}
	return nil
}

func (p *Pipeline) persist(_ context.Context, st *state) error {
	result, split := st.report.Result, st.split
	numeric, categorical := preprocess.FeatureGroups(split.Train, p.opts.Target)
	st.metadata = &models.ModelMetadata{
		RunID:               st.runID,
		ModelName:           result.Best.Name,
		ModelKind:           result.Best.Model.Kind(),
		SelectionMetric:     models.SelectionMetric,
		Metrics:             result.Best.Metrics,
		Candidates:          result.Leaderboard(),
		Tuning:              result.Tuning,
		DataPath:            st.dataPath,
		TrainRows:           len(split.YTrain),
		TestRows:            len(split.YTest),
		TrainPositiveRate:   preprocess.PositiveRate(split.YTrain),
		TestPositiveRate:    preprocess.PositiveRate(split.YTest),
		NumericFeatures:     numeric,
		CategoricalFeatures: categorical,
		FeatureCount:        len(split.Features),
		EncodedWidth:        split.Transform.Width(),
		TrainedAt:           time.Now().UTC(),
	}
	return p.store.Save(&artifacts.Bundle{
		Transform: split.Transform,
		Features:  split.Features,
		Model:     result.Best.Model,
		Metadata:  st.metadata,
	})
}
