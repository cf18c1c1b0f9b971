package tuning

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mimir-aip/attrition-risk/pkg/logging"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/classifier"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/evaluation"
)

// ParamFactory builds an untrained model for one grid combination
type ParamFactory func(params map[string]float64) (classifier.Classifier, error)

// Options control cross-validation and concurrency
type Options struct {
	Folds   int
	Seed    int64
	Workers int
	Logger  *logging.Logger
}

// DefaultOptions returns 5 shuffled folds seeded with 42
func DefaultOptions() Options {
	return Options{Folds: 5, Seed: 42, Workers: runtime.NumCPU()}
}

// Result is the cross-validated score of one combination
type Result struct {
	Params     map[string]float64 `json:"params"`
	MeanScore  float64            `json:"mean_score"`
	FoldScores []float64          `json:"fold_scores"`
}

// SearchResult holds every combination's score and the winner refit on
// all of the training data
type SearchResult struct {
	BestParams map[string]float64
	BestScore  float64
	BestIndex  int
	Results    []Result
	Best       classifier.Classifier
}

// GridSearch scores every grid combination by mean ROC-AUC over
// stratified, shuffled folds. Fits run concurrently on at most
// opts.Workers goroutines; ties go to the earliest combination.
func GridSearch(ctx context.Context, factory ParamFactory, grid Grid, X [][]float64, y []float64, opts Options) (*SearchResult, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With(logging.Component("tuning"))

	folds, err := classifier.StratifiedFolds(y, opts.Folds, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return nil, fmt.Errorf("failed to build folds: %w", err)
	}

	combos := grid.Combinations()
	// Fail fast on parameters the factory rejects
	for _, params := range combos {
		if _, err := factory(params); err != nil {
			return nil, fmt.Errorf("invalid grid combination %v: %w", params, err)
		}
	}

	logger.Info("starting grid search",
		logging.Int("combinations", len(combos)),
		logging.Int("folds", len(folds)),
		logging.Int("workers", opts.Workers),
	)
	start := time.Now()

	scores := make([][]float64, len(combos))
	for c := range scores {
		scores[c] = make([]float64, len(folds))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for c, params := range combos {
		for f := range folds {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				trainIdx, validIdx := classifier.FoldSplit(folds, f)
				xt, yt := classifier.Rows(X, y, trainIdx)
				xv, yv := classifier.Rows(X, y, validIdx)

				model, err := factory(params)
				if err != nil {
					return err
				}
				if err := model.Fit(xt, yt); err != nil {
					return fmt.Errorf("combination %d fold %d: %w", c, f, err)
				}
				proba, err := model.PredictProba(xv)
				if err != nil {
					return fmt.Errorf("combination %d fold %d: %w", c, f, err)
				}
				scores[c][f] = evaluation.ROCAUC(yv, proba)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &SearchResult{Results: make([]Result, len(combos)), BestIndex: -1}
	for c, params := range combos {
		mean := 0.0
		for _, s := range scores[c] {
			mean += s
		}
		mean /= float64(len(scores[c]))
		result.Results[c] = Result{Params: params, MeanScore: mean, FoldScores: scores[c]}
		if result.BestIndex < 0 || mean > result.BestScore {
			result.BestIndex, result.BestScore = c, mean
		}
	}
	result.BestParams = combos[result.BestIndex]

	best, err := factory(result.BestParams)
	if err != nil {
		return nil, err
	}
	if err := best.Fit(X, y); err != nil {
		return nil, fmt.Errorf("failed to refit best combination: %w", err)
	}
	result.Best = best

	logger.Info("grid search complete",
		logging.Any("best_params", result.BestParams),
		logging.Float("best_cv_roc_auc", result.BestScore),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// XGBoostFactory builds XGBoost models from grid values with a fixed seed
func XGBoostFactory(seed int64) ParamFactory {
	return func(params map[string]float64) (classifier.Classifier, error) {
		model, err := classifier.NewXGBoostFromGrid(params, seed)
		if err != nil {
			return nil, err
		}
		return model, nil
	}
}
