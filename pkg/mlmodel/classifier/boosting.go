package classifier

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// boostedTrees is an additive model on the log-odds scale
type boostedTrees struct {
	InitScore    float64 `json:"init_score"`
	LearningRate float64 `json:"learning_rate"`
	NumFeatures  int     `json:"num_features"`
	Trees        []*Tree `json:"trees"`
}

func (b *boostedTrees) margin(x []float64) float64 {
	m := b.InitScore
	for _, t := range b.Trees {
		m += b.LearningRate * t.Eval(x)
	}
	return m
}

func (b *boostedTrees) proba(X [][]float64) ([]float64, error) {
	if b.NumFeatures == 0 {
		return nil, ErrNotFitted
	}
	if err := validateInput(X, b.NumFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = sigmoid(b.margin(x))
	}
	return out, nil
}

// GradientBoosting fits regression trees to log-loss residuals, starting
// from the prior log-odds, with Newton-step leaf values
type GradientBoosting struct {
	boostedTrees
	NumRounds int   `json:"num_rounds"`
	MaxDepth  int   `json:"max_depth"`
	Seed      int64 `json:"seed"`
}

// NewGradientBoosting creates a gradient boosting classifier
func NewGradientBoosting(numRounds int, learningRate float64, maxDepth int, seed int64) *GradientBoosting {
	return &GradientBoosting{
		boostedTrees: boostedTrees{LearningRate: learningRate},
		NumRounds:    numRounds,
		MaxDepth:     maxDepth,
		Seed:         seed,
	}
}

func (gb *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	n := len(X)
	bins := newBinner(X)

	prior := 0.0
	for _, v := range y {
		prior += v
	}
	gb.InitScore = logit(prior / float64(n))
	gb.Trees = nil

	margins := make([]float64, n)
	for i := range margins {
		margins[i] = gb.InitScore
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	rows := make([]nodeStats, n)
	crit := newtonCriterion{}
	params := treeParams{maxDepth: gb.MaxDepth, minSamplesLeaf: 1}
	for round := 0; round < gb.NumRounds; round++ {
		for i := range rows {
			p := sigmoid(margins[i])
			rows[i] = nodeStats{sum: y[i] - p, weight: 1, hess: p * (1 - p), count: 1}
		}
		tree := growTree(bins, rows, idx, crit, params, nil, nil)
		gb.Trees = append(gb.Trees, tree)
		for i, x := range X {
			margins[i] += gb.LearningRate * tree.Eval(x)
		}
	}
	gb.NumFeatures = len(X[0])
	return nil
}

func (gb *GradientBoosting) PredictProba(X [][]float64) ([]float64, error) {
	return gb.proba(X)
}

func (gb *GradientBoosting) Predict(X [][]float64) ([]float64, error) {
	return predictWith(gb, X)
}

func (gb *GradientBoosting) Kind() models.ModelKind { return models.ModelKindGradientBoosting }

// XGBoostParams are the tunable hyperparameters of XGBoost
type XGBoostParams struct {
	NumRounds       int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	LearningRate    float64 `json:"learning_rate"`
	Subsample       float64 `json:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree"`
	ScalePosWeight  float64 `json:"scale_pos_weight"`
	Lambda          float64 `json:"reg_lambda"`
	MinChildWeight  float64 `json:"min_child_weight"`
	Seed            int64   `json:"seed"`
}

// DefaultXGBoostParams mirrors the reference library's defaults
func DefaultXGBoostParams() XGBoostParams {
	return XGBoostParams{
		NumRounds:       100,
		MaxDepth:        6,
		LearningRate:    0.3,
		Subsample:       1,
		ColsampleByTree: 1,
		ScalePosWeight:  1,
		Lambda:          1,
		MinChildWeight:  1,
		Seed:            42,
	}
}

// Set assigns a hyperparameter by its grid name
func (p *XGBoostParams) Set(name string, v float64) error {
	switch name {
	case "n_estimators":
		p.NumRounds = int(v)
	case "max_depth":
		p.MaxDepth = int(v)
	case "learning_rate":
		p.LearningRate = v
	case "subsample":
		p.Subsample = v
	case "colsample_bytree":
		p.ColsampleByTree = v
	case "scale_pos_weight":
		p.ScalePosWeight = v
	case "reg_lambda":
		p.Lambda = v
	case "min_child_weight":
		p.MinChildWeight = v
	default:
		return fmt.Errorf("unknown xgboost parameter %q", name)
	}
	return nil
}

// Validate checks parameter ranges
func (p XGBoostParams) Validate() error {
	switch {
	case p.NumRounds < 1:
		return fmt.Errorf("n_estimators must be positive")
	case p.MaxDepth < 1:
		return fmt.Errorf("max_depth must be positive")
	case p.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive")
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1]")
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("colsample_bytree must be in (0, 1]")
	case p.ScalePosWeight <= 0:
		return fmt.Errorf("scale_pos_weight must be positive")
	}
	return nil
}

// XGBoost is second-order gradient boosting with L2-regularised leaves,
// per-tree row and column subsampling and a positive-class weight
type XGBoost struct {
	boostedTrees
	Params XGBoostParams `json:"params"`
}

// NewXGBoost creates an XGBoost classifier
func NewXGBoost(params XGBoostParams) *XGBoost {
	return &XGBoost{
		boostedTrees: boostedTrees{LearningRate: params.LearningRate},
		Params:       params,
	}
}

// NewXGBoostFromGrid applies grid values over the defaults
func NewXGBoostFromGrid(values map[string]float64, seed int64) (*XGBoost, error) {
	params := DefaultXGBoostParams()
	params.Seed = seed

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := params.Set(name, values[name]); err != nil {
			return nil, err
		}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return NewXGBoost(params), nil
}

func (xg *XGBoost) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	if err := xg.Params.Validate(); err != nil {
		return err
	}
	n, p := len(X), len(X[0])
	bins := newBinner(X)
	rng := rand.New(rand.NewSource(xg.Params.Seed))

	xg.InitScore = 0
	xg.LearningRate = xg.Params.LearningRate
	xg.Trees = nil

	weights := make([]float64, n)
	for i, v := range y {
		weights[i] = 1
		if v == 1 {
			weights[i] = xg.Params.ScalePosWeight
		}
	}

	crit := newtonCriterion{lambda: xg.Params.Lambda, minChildWeight: xg.Params.MinChildWeight, negateLeaf: true}
	params := treeParams{maxDepth: xg.Params.MaxDepth, minSamplesLeaf: 1}
	margins := make([]float64, n)
	rows := make([]nodeStats, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	for round := 0; round < xg.Params.NumRounds; round++ {
		for i := range rows {
			prob := sigmoid(margins[i])
			g := (prob - y[i]) * weights[i]
			h := prob * (1 - prob) * weights[i]
			rows[i] = nodeStats{sum: g, weight: h, hess: h, count: 1}
		}

		idx := all
		if xg.Params.Subsample < 1 {
			k := int(xg.Params.Subsample*float64(n) + 0.5)
			if k < 1 {
				k = 1
			}
			idx = rng.Perm(n)[:k]
		}
		features := sampleFeatures(p, xg.Params.ColsampleByTree, rng)

		tree := growTree(bins, rows, idx, crit, params, features, nil)
		xg.Trees = append(xg.Trees, tree)
		for i, x := range X {
			margins[i] += xg.LearningRate * tree.Eval(x)
		}
	}
	xg.NumFeatures = p
	return nil
}

func (xg *XGBoost) PredictProba(X [][]float64) ([]float64, error) {
	return xg.proba(X)
}

func (xg *XGBoost) Predict(X [][]float64) ([]float64, error) {
	return predictWith(xg, X)
}

func (xg *XGBoost) Kind() models.ModelKind { return models.ModelKindXGBoost }
