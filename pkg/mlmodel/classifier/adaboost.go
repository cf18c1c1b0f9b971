package classifier

import (
	"fmt"
	"math"

	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// AdaBoost is discrete SAMME boosting of shallow gini trees. The
// probability of class 1 is sigmoid(Σ αₘ sₘ / Σ αₘ) with sₘ = ±1 the vote
// of estimator m.
type AdaBoost struct {
	NumRounds    int       `json:"num_rounds"`
	LearningRate float64   `json:"learning_rate"`
	MaxDepth     int       `json:"max_depth"`
	Seed         int64     `json:"seed"`
	NumFeatures  int       `json:"num_features"`
	Trees        []*Tree   `json:"trees"`
	Alphas       []float64 `json:"alphas"`
}

// NewAdaBoost creates an AdaBoost classifier
func NewAdaBoost(numRounds int, learningRate float64, maxDepth int, seed int64) *AdaBoost {
	return &AdaBoost{NumRounds: numRounds, LearningRate: learningRate, MaxDepth: maxDepth, Seed: seed}
}

func (ab *AdaBoost) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	n := len(X)
	bins := newBinner(X)
	ab.Trees, ab.Alphas = nil, nil

	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rows := make([]nodeStats, n)
	params := treeParams{maxDepth: ab.MaxDepth, minSamplesLeaf: 1}
	miss := make([]bool, n)

	for round := 0; round < ab.NumRounds; round++ {
		for i := range rows {
			rows[i] = nodeStats{sum: w[i] * y[i], weight: w[i], count: 1}
		}
		tree := growTree(bins, rows, idx, giniCriterion{}, params, nil, nil)

		errW, total := 0.0, 0.0
		for i, x := range X {
			pred := 0.0
			if tree.Eval(x) > 0.5 {
				pred = 1
			}
			miss[i] = pred != y[i]
			if miss[i] {
				errW += w[i]
			}
			total += w[i]
		}
		errRate := errW / total

		if errRate <= 0 {
			// Perfect fit: keep it with unit weight and stop
			ab.Trees = append(ab.Trees, tree)
			ab.Alphas = append(ab.Alphas, 1)
			break
		}
		if errRate >= 0.5 {
			if len(ab.Trees) == 0 {
				return fmt.Errorf("adaboost: first estimator is no better than chance (error %.3f)", errRate)
			}
			break
		}

		alpha := ab.LearningRate * math.Log((1-errRate)/errRate)
		ab.Trees = append(ab.Trees, tree)
		ab.Alphas = append(ab.Alphas, alpha)

		sum := 0.0
		for i := range w {
			if miss[i] {
				w[i] *= math.Exp(alpha)
			}
			sum += w[i]
		}
		for i := range w {
			w[i] /= sum
		}
	}
	ab.NumFeatures = len(X[0])
	return nil
}

func (ab *AdaBoost) PredictProba(X [][]float64) ([]float64, error) {
	if len(ab.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := validateInput(X, ab.NumFeatures); err != nil {
		return nil, err
	}
	alphaSum := 0.0
	for _, a := range ab.Alphas {
		alphaSum += a
	}
	out := make([]float64, len(X))
	for i, x := range X {
		vote := 0.0
		for m, t := range ab.Trees {
			if t.Eval(x) > 0.5 {
				vote += ab.Alphas[m]
			} else {
				vote -= ab.Alphas[m]
			}
		}
		out[i] = sigmoid(vote / alphaSum)
	}
	return out, nil
}

func (ab *AdaBoost) Predict(X [][]float64) ([]float64, error) {
	return predictWith(ab, X)
}

func (ab *AdaBoost) Kind() models.ModelKind { return models.ModelKindAdaBoost }
