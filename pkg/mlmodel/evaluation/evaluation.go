package evaluation

import (
	"fmt"
	"math"

	"github.com/sjwhitworth/golearn/evaluation"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/classifier"
	"github.com/mimir-aip/attrition-risk/pkg/models"
)

const (
	positiveClass = "1"
	negativeClass = "0"
)

// Evaluate scores a trained model on held-out data. Precision, recall, F1
// and accuracy refer to the positive class (label 1).
func Evaluate(name string, model classifier.Classifier, X [][]float64, y []float64) (*models.PerformanceMetrics, error) {
	proba, err := model.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("failed to score %s: %w", name, err)
	}
	pred, err := model.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("failed to predict with %s: %w", name, err)
	}
	return Score(name, y, proba, pred)
}

// Score computes metrics from labels, probabilities and hard predictions
func Score(name string, y, proba, pred []float64) (*models.PerformanceMetrics, error) {
	if len(y) == 0 {
		return nil, fmt.Errorf("no labels to evaluate")
	}
	if len(proba) != len(y) || len(pred) != len(y) {
		return nil, fmt.Errorf("got %d labels, %d probabilities and %d predictions", len(y), len(proba), len(pred))
	}

	cm := ConfusionMatrix(y, pred)
	return &models.PerformanceMetrics{
		Model:     name,
		ROCAUC:    ROCAUC(y, proba),
		F1Score:   finite(evaluation.GetF1Score(positiveClass, cm)),
		Precision: finite(evaluation.GetPrecision(positiveClass, cm)),
		Recall:    finite(evaluation.GetRecall(positiveClass, cm)),
		Accuracy:  finite(evaluation.GetAccuracy(cm)),
		ConfusionMatrix: [][]int{
			{cm[negativeClass][negativeClass], cm[negativeClass][positiveClass]},
			{cm[positiveClass][negativeClass], cm[positiveClass][positiveClass]},
		},
	}, nil
}

// ConfusionMatrix counts predictions per class as golearn expects it,
// indexed [actual][predicted]
func ConfusionMatrix(y, pred []float64) evaluation.ConfusionMatrix {
	cm := evaluation.ConfusionMatrix{
		negativeClass: {negativeClass: 0, positiveClass: 0},
		positiveClass: {negativeClass: 0, positiveClass: 0},
	}
	for i := range y {
		cm[label(y[i])][label(pred[i])]++
	}
	return cm
}

// ROCAUC is the area under the ROC curve. With a single class present the
// curve is undefined and 0.5 is returned.
func ROCAUC(y, proba []float64) float64 {
	fpr, tpr, ok := ROCCurve(y, proba)
	if !ok {
		return 0.5
	}
	return integrate.Trapezoidal(fpr, tpr)
}

// ROCCurve returns the ROC points ordered by increasing false positive
// rate. ok is false when y does not contain both classes.
func ROCCurve(y, proba []float64) (fpr, tpr []float64, ok bool) {
	scores := make([]float64, len(proba))
	copy(scores, proba)
	classes := make([]bool, len(y))
	var pos int
	for i, v := range y {
		classes[i] = v == 1
		if classes[i] {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return nil, nil, false
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ = stat.ROC(nil, scores, classes, nil)
	return fpr, tpr, true
}

func label(v float64) string {
	if v == 1 {
		return positiveClass
	}
	return negativeClass
}

// finite maps the NaN golearn returns for 0/0 ratios to 0
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
