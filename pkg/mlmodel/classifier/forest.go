package classifier

import (
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// forest is the shared implementation of bagged gini trees
type forest struct {
	NumTrees       int     `json:"num_trees"`
	MaxDepth       int     `json:"max_depth"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	Seed           int64   `json:"seed"`
	NumFeatures    int     `json:"num_features"`
	Trees          []*Tree `json:"trees"`
}

// fit trains NumTrees trees on bootstrap samples in parallel. Per-tree
// seeds are drawn up front so the result does not depend on scheduling.
func (f *forest) fit(X [][]float64, y []float64, weights []float64, maxFeatures int) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	n := len(X)
	bins := newBinner(X)

	rows := make([]nodeStats, n)
	for i := range rows {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		rows[i] = nodeStats{sum: w * y[i], weight: w, count: 1}
	}

	master := rand.New(rand.NewSource(f.Seed))
	seeds := make([]int64, f.NumTrees)
	for t := range seeds {
		seeds[t] = master.Int63()
	}

	trees := make([]*Tree, f.NumTrees)
	var g errgroup.Group
	for t := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[t]))
			sample := make([]int, n)
			for i := range sample {
				sample[i] = rng.Intn(n)
			}
			params := treeParams{maxDepth: f.MaxDepth, minSamplesLeaf: f.MinSamplesLeaf, maxFeatures: maxFeatures}
			trees[t] = growTree(bins, rows, sample, giniCriterion{}, params, nil, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.Trees = trees
	f.NumFeatures = len(X[0])
	return nil
}

// proba averages the trees' leaf positive fractions
func (f *forest) proba(X [][]float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := validateInput(X, f.NumFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		sum := 0.0
		for _, t := range f.Trees {
			sum += t.Eval(x)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

// Bagging averages CART trees grown on bootstrap samples over all features
type Bagging struct {
	forest
}

// NewBagging creates a bagging ensemble of depth-limited trees
func NewBagging(numTrees, maxDepth int, seed int64) *Bagging {
	return &Bagging{forest{NumTrees: numTrees, MaxDepth: maxDepth, MinSamplesLeaf: 1, Seed: seed}}
}

func (b *Bagging) Fit(X [][]float64, y []float64) error {
	return b.fit(X, y, nil, 0)
}

func (b *Bagging) PredictProba(X [][]float64) ([]float64, error) {
	return b.proba(X)
}

func (b *Bagging) Predict(X [][]float64) ([]float64, error) {
	return predictWith(b, X)
}

func (b *Bagging) Kind() models.ModelKind { return models.ModelKindBagging }

// RandomForest is bagging with sqrt(p) candidate features per split and
// optionally balanced class weights
type RandomForest struct {
	forest
	BalancedClassWeight bool `json:"balanced_class_weight"`
}

// NewRandomForest creates a random forest. maxDepth <= 0 leaves depth
// unbounded.
func NewRandomForest(numTrees, maxDepth int, balanced bool, seed int64) *RandomForest {
	return &RandomForest{
		forest:              forest{NumTrees: numTrees, MaxDepth: maxDepth, MinSamplesLeaf: 1, Seed: seed},
		BalancedClassWeight: balanced,
	}
}

func (rf *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	var weights []float64
	if rf.BalancedClassWeight {
		weights = balancedWeights(y)
	}
	maxFeatures := int(math.Sqrt(float64(len(X[0]))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	return rf.fit(X, y, weights, maxFeatures)
}

func (rf *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	return rf.proba(X)
}

func (rf *RandomForest) Predict(X [][]float64) ([]float64, error) {
	return predictWith(rf, X)
}

func (rf *RandomForest) Kind() models.ModelKind { return models.ModelKindRandomForest }

// balancedWeights gives class c the weight n / (2 * n_c)
func balancedWeights(y []float64) []float64 {
	var counts [2]float64
	for _, v := range y {
		counts[int(v)]++
	}
	n := float64(len(y))
	w := make([]float64, len(y))
	for i, v := range y {
		w[i] = n / (2 * counts[int(v)])
	}
	return w
}
