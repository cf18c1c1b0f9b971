package evaluation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/classifier"
)

func TestScore(t *testing.T) {
	y := []float64{0, 0, 0, 1, 1, 1}
	proba := []float64{0.1, 0.2, 0.7, 0.4, 0.8, 0.9}
	pred := []float64{0, 0, 1, 0, 1, 1}

	m, err := Score("test", y, proba, pred)
	require.NoError(t, err)

	assert.Equal(t, "test", m.Model)
	assert.Equal(t, [][]int{{2, 1}, {1, 2}}, m.ConfusionMatrix)
	assert.InDelta(t, 2.0/3, m.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, m.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, m.F1Score, 1e-12)
	assert.InDelta(t, 4.0/6, m.Accuracy, 1e-12)
	// 8 of 9 positive/negative pairs are ordered correctly
	assert.InDelta(t, 8.0/9, m.ROCAUC, 1e-12)
}

func TestScoreNoPositivePredictions(t *testing.T) {
	y := []float64{0, 1, 0, 1}
	m, err := Score("none", y, []float64{0.1, 0.2, 0.3, 0.4}, []float64{0, 0, 0, 0})
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Precision)
	assert.Equal(t, 0.0, m.Recall)
	assert.Equal(t, 0.0, m.F1Score)
	assert.Equal(t, 0.5, m.Accuracy)
}

func TestROCAUC(t *testing.T) {
	assert.Equal(t, 1.0, ROCAUC([]float64{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}))
	assert.Equal(t, 0.0, ROCAUC([]float64{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9}))
	assert.Equal(t, 0.5, ROCAUC([]float64{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5}))
	assert.Equal(t, 0.5, ROCAUC([]float64{1, 1, 1}, []float64{0.2, 0.4, 0.9}))
}

func TestROCAUCDoesNotReorderInput(t *testing.T) {
	y := []float64{1, 0, 1, 0}
	proba := []float64{0.9, 0.1, 0.6, 0.3}
	ROCAUC(y, proba)
	assert.Equal(t, []float64{0.9, 0.1, 0.6, 0.3}, proba)
}

func TestScoreLengthMismatch(t *testing.T) {
	_, err := Score("bad", []float64{0, 1}, []float64{0.2}, []float64{0, 1})
	assert.Error(t, err)
	_, err = Score("empty", nil, nil, nil)
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}, {4}, {5}, {6}, {7}}
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	model := classifier.NewLogisticRegression(1, 100)
	require.NoError(t, model.Fit(X, y))

	m, err := Evaluate("logistic", model, X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.ROCAUC)
	assert.Equal(t, 1.0, m.Accuracy)

	_, err = Evaluate("unfitted", classifier.NewLogisticRegression(1, 10), X, y)
	assert.ErrorIs(t, err, classifier.ErrNotFitted)
}

func TestPlotROC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roc.png")
	err := PlotROC(path, []Curve{
		{Name: "a", Y: []float64{0, 0, 1, 1}, Proba: []float64{0.1, 0.6, 0.4, 0.9}},
		{Name: "single class", Y: []float64{1, 1}, Proba: []float64{0.3, 0.4}},
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
