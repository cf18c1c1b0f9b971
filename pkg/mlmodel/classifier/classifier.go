// Package classifier implements the binary attrition classifiers: tree
// ensembles, boosting, logistic regression and the voting and stacking
// meta-models. Every model predicts the probability of label 1.
package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// ErrNotFitted is returned when predicting with an untrained model
var ErrNotFitted = errors.New("model is not fitted")

// Classifier is a binary probabilistic classifier over dense feature rows
type Classifier interface {
	// Fit trains on rows X with labels y in {0, 1}
	Fit(X [][]float64, y []float64) error
	// PredictProba returns P(y = 1) for every row
	PredictProba(X [][]float64) ([]float64, error)
	// Predict returns 1 where PredictProba > 0.5, else 0
	Predict(X [][]float64) ([]float64, error)
	Kind() models.ModelKind
}

// Factory creates an untrained classifier
type Factory func() Classifier

func validateTraining(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training data")
	}
	if len(X) != len(y) {
		return fmt.Errorf("X has %d rows but y has %d labels", len(X), len(y))
	}
	p := len(X[0])
	if p == 0 {
		return fmt.Errorf("training data has no features")
	}
	positives := 0
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), p)
		}
		switch y[i] {
		case 1:
			positives++
		case 0:
		default:
			return fmt.Errorf("label %d is %v, expected 0 or 1", i, y[i])
		}
	}
	if positives == 0 || positives == len(y) {
		return fmt.Errorf("training labels contain a single class")
	}
	return nil
}

func validateInput(X [][]float64, numFeatures int) error {
	if numFeatures == 0 {
		return ErrNotFitted
	}
	for i, row := range X {
		if len(row) != numFeatures {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), numFeatures)
		}
	}
	return nil
}

// threshold turns probabilities into 0/1 labels
func threshold(proba []float64) []float64 {
	out := make([]float64, len(proba))
	for i, p := range proba {
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out
}

func predictWith(c Classifier, X [][]float64) ([]float64, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return threshold(proba), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func logit(p float64) float64 {
	const eps = 1e-15
	p = math.Min(math.Max(p, eps), 1-eps)
	return math.Log(p / (1 - p))
}
