package training

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/mimir-aip/attrition-risk/pkg/logging"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/classifier"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/evaluation"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/tuning"
	"github.com/mimir-aip/attrition-risk/pkg/models"
	"github.com/mimir-aip/attrition-risk/pkg/preprocess"
)

// Candidate names, in the order candidates are trained and reported
const (
	NameBagging          = "Bagging"
	NameRandomForest     = "Random Forest"
	NameGradientBoosting = "Gradient Boosting"
	NameAdaBoost         = "AdaBoost"
	NameXGBoost          = "XGBoost"
	NameVoting           = "Voting"
	NameStacking         = "Stacking"
)

// Config holds the trainer's tunables
type Config struct {
	Seed    int64
	CVFolds int
	Workers int
	Grid    tuning.Grid
}

// DefaultConfig uses seed 42, 5 folds, one worker per CPU and the full grid
func DefaultConfig() Config {
	return Config{
		Seed:    42,
		CVFolds: 5,
		Workers: runtime.NumCPU(),
		Grid:    tuning.DefaultXGBoostGrid(),
	}
}

// Candidate is one trained model with its test-set metrics
type Candidate struct {
	Name    string
	Model   classifier.Classifier
	Metrics *models.PerformanceMetrics
	// Proba holds the model's test-set probabilities
	Proba []float64
}

// Result is the outcome of a training run
type Result struct {
	Candidates []*Candidate
	Best       *Candidate
	Tuning     *models.TuningSummary
	// YTest holds the test labels every Candidate.Proba is aligned with
	YTest []float64
}

// Leaderboard returns candidate metrics in training order
func (r *Result) Leaderboard() []*models.PerformanceMetrics {
	out := make([]*models.PerformanceMetrics, len(r.Candidates))
	for i, c := range r.Candidates {
		out[i] = c.Metrics
	}
	return out
}

// Trainer fits every model family on a prepared split and selects the
// best one by test ROC-AUC
type Trainer struct {
	cfg    Config
	logger *logging.Logger
}

// NewTrainer creates a trainer
func NewTrainer(cfg Config, logger *logging.Logger) *Trainer {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if len(cfg.Grid) == 0 {
		cfg.Grid = tuning.DefaultXGBoostGrid()
	}
	return &Trainer{cfg: cfg, logger: logger.With(logging.Component("training"))}
}

type family struct {
	name    string
	factory classifier.Factory
}

// baseFamilies are the fixed-hyperparameter models trained first
func (t *Trainer) baseFamilies() []family {
	seed := t.cfg.Seed
	return []family{
		{NameBagging, func() classifier.Classifier { return classifier.NewBagging(100, 6, seed) }},
		{NameRandomForest, func() classifier.Classifier { return classifier.NewRandomForest(200, 10, true, seed) }},
		{NameGradientBoosting, func() classifier.Classifier { return classifier.NewGradientBoosting(200, 0.05, 5, seed) }},
		{NameAdaBoost, func() classifier.Classifier { return classifier.NewAdaBoost(150, 0.1, 3, seed) }},
	}
}

// Run trains the base families, tunes XGBoost, builds the voting and
// stacking ensembles and evaluates everything on the test partition. Any
// fit error aborts the run. ctx is checked between candidates.
func (t *Trainer) Run(ctx context.Context, split *preprocess.Split) (*Result, error) {
	if split == nil || len(split.XTrain) == 0 || len(split.XTest) == 0 {
		return nil, fmt.Errorf("training split is empty")
	}
	result := &Result{YTest: split.YTest}

	for _, f := range t.baseFamilies() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := t.fitAndEvaluate(f.name, f.factory(), split)
		if err != nil {
			return nil, err
		}
		result.Candidates = append(result.Candidates, c)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	search, err := tuning.GridSearch(ctx, tuning.XGBoostFactory(t.cfg.Seed), t.cfg.Grid, split.XTrain, split.YTrain, tuning.Options{
		Folds:   t.cfg.CVFolds,
		Seed:    t.cfg.Seed,
		Workers: t.cfg.Workers,
		Logger:  t.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("xgboost tuning failed: %w", err)
	}
	result.Tuning = &models.TuningSummary{
		Family:       models.ModelKindXGBoost,
		BestParams:   search.BestParams,
		BestCVScore:  search.BestScore,
		Folds:        t.cfg.CVFolds,
		Combinations: len(search.Results),
	}
	xgb, err := t.evaluate(NameXGBoost, search.Best, split)
	if err != nil {
		return nil, err
	}
	result.Candidates = append(result.Candidates, xgb)

	tunedXGBoost, err := tunedFactory(search.BestParams, t.cfg.Seed)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	voting, err := classifier.NewVoting([]classifier.Classifier{
		tunedXGBoost(),
		classifier.NewRandomForest(200, 0, false, t.cfg.Seed),
		classifier.NewGradientBoosting(200, 0.1, 3, t.cfg.Seed),
	}, []float64{2, 1, 1})
	if err != nil {
		return nil, err
	}
	c, err := t.fitAndEvaluate(NameVoting, voting, split)
	if err != nil {
		return nil, err
	}
	result.Candidates = append(result.Candidates, c)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stacking, err := classifier.NewStacking([]classifier.Factory{
		tunedXGBoost,
		func() classifier.Classifier { return classifier.NewRandomForest(150, 0, false, t.cfg.Seed) },
		func() classifier.Classifier { return classifier.NewGradientBoosting(150, 0.1, 3, t.cfg.Seed) },
	}, classifier.NewLogisticRegression(1, 1000), t.cfg.CVFolds)
	if err != nil {
		return nil, err
	}
	if c, err = t.fitAndEvaluate(NameStacking, stacking, split); err != nil {
		return nil, err
	}
	result.Candidates = append(result.Candidates, c)

	result.Best = SelectBest(result.Candidates)
	t.logger.Info("selected best model",
		logging.String("model", result.Best.Name),
		logging.Float("roc_auc", result.Best.Metrics.ROCAUC),
	)
	return result, nil
}

// tunedFactory builds untrained XGBoost models carrying the tuned params
func tunedFactory(values map[string]float64, seed int64) (classifier.Factory, error) {
	tuned, err := classifier.NewXGBoostFromGrid(values, seed)
	if err != nil {
		return nil, fmt.Errorf("invalid tuned xgboost params: %w", err)
	}
	return func() classifier.Classifier { return classifier.NewXGBoost(tuned.Params) }, nil
}

func (t *Trainer) fitAndEvaluate(name string, model classifier.Classifier, split *preprocess.Split) (*Candidate, error) {
	start := time.Now()
	if err := model.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, fmt.Errorf("failed to train %s: %w", name, err)
	}
	t.logger.Debug("model trained", logging.String("model", name), logging.Duration("elapsed", time.Since(start)))
	return t.evaluate(name, model, split)
}

func (t *Trainer) evaluate(name string, model classifier.Classifier, split *preprocess.Split) (*Candidate, error) {
	proba, err := model.PredictProba(split.XTest)
	if err != nil {
		return nil, fmt.Errorf("failed to score %s: %w", name, err)
	}
	pred, err := model.Predict(split.XTest)
	if err != nil {
		return nil, fmt.Errorf("failed to predict with %s: %w", name, err)
	}
	metrics, err := evaluation.Score(name, split.YTest, proba, pred)
	if err != nil {
		return nil, err
	}

	t.logger.Info("model evaluated",
		logging.String("model", name),
		logging.Float("roc_auc", metrics.ROCAUC),
		logging.Float("f1", metrics.F1Score),
		logging.Float("precision", metrics.Precision),
		logging.Float("recall", metrics.Recall),
	)
	return &Candidate{Name: name, Model: model, Metrics: metrics, Proba: proba}, nil
}

// SelectBest returns the candidate with the highest ROC-AUC; the earliest
// candidate wins ties
func SelectBest(candidates []*Candidate) *Candidate {
	var best *Candidate
	for _, c := range candidates {
		if best == nil || c.Metrics.ROCAUC > best.Metrics.ROCAUC {
			best = c
		}
	}
	return best
}
