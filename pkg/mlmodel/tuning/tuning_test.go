package tuning

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/classifier"
)

func makeData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		X[i] = []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		if X[i][0]-0.5*X[i][2]+0.4*rng.NormFloat64() > 0.6 {
			y[i] = 1
		}
	}
	return X, y
}

func TestDefaultGrid(t *testing.T) {
	grid := DefaultXGBoostGrid()
	require.NoError(t, grid.Validate())
	assert.Equal(t, 216, grid.Size())
	assert.Len(t, grid.Combinations(), 216)
}

func TestCombinationsOrder(t *testing.T) {
	grid := Grid{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{10, 20, 30}},
	}
	combos := grid.Combinations()
	require.Len(t, combos, 6)
	assert.Equal(t, map[string]float64{"a": 1, "b": 10}, combos[0])
	assert.Equal(t, map[string]float64{"a": 1, "b": 20}, combos[1])
	assert.Equal(t, map[string]float64{"a": 2, "b": 10}, combos[3])
	assert.Equal(t, map[string]float64{"a": 2, "b": 30}, combos[5])
}

func TestGridFromMap(t *testing.T) {
	grid := GridFromMap(map[string][]float64{
		"scale_pos_weight": {1, 3},
		"reg_lambda":       {1},
		"max_depth":        {3},
		"min_child_weight": {1},
	})
	names := make([]string, len(grid))
	for i, axis := range grid {
		names[i] = axis.Name
	}
	assert.Equal(t, []string{"max_depth", "scale_pos_weight", "min_child_weight", "reg_lambda"}, names)
}

func TestGridValidate(t *testing.T) {
	assert.Error(t, Grid{}.Validate())
	assert.Error(t, Grid{{Name: "a"}}.Validate())
	assert.Error(t, Grid{{Name: "a", Values: []float64{1}}, {Name: "a", Values: []float64{2}}}.Validate())
}

func TestGridSearch(t *testing.T) {
	X, y := makeData(200, 1)
	grid := Grid{
		{Name: "n_estimators", Values: []float64{5, 30}},
		{Name: "max_depth", Values: []float64{1, 3}},
	}
	opts := Options{Folds: 3, Seed: 42, Workers: 4}

	res, err := GridSearch(context.Background(), XGBoostFactory(42), grid, X, y, opts)
	require.NoError(t, err)
	require.Len(t, res.Results, 4)
	require.NotNil(t, res.Best)

	for i, r := range res.Results {
		assert.Len(t, r.FoldScores, 3)
		assert.LessOrEqual(t, r.MeanScore, res.BestScore)
		if r.MeanScore == res.BestScore {
			assert.GreaterOrEqual(t, i, res.BestIndex)
		}
	}
	assert.Equal(t, res.Results[res.BestIndex].Params, res.BestParams)
	assert.Greater(t, res.BestScore, 0.8)

	xgb, ok := res.Best.(*classifier.XGBoost)
	require.True(t, ok)
	assert.Equal(t, int(res.BestParams["n_estimators"]), xgb.Params.NumRounds)

	// Worker count does not change the outcome
	serial, err := GridSearch(context.Background(), XGBoostFactory(42), grid, X, y, Options{Folds: 3, Seed: 42, Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, res.BestParams, serial.BestParams)
	for i := range res.Results {
		assert.Equal(t, res.Results[i].FoldScores, serial.Results[i].FoldScores)
	}
}

func TestGridSearchTieGoesToFirst(t *testing.T) {
	X, y := makeData(120, 2)
	// reg_lambda is not used by the factory below, so every combination
	// scores the same
	grid := Grid{{Name: "reg_lambda", Values: []float64{1, 2, 3}}}
	factory := func(map[string]float64) (classifier.Classifier, error) {
		return classifier.NewLogisticRegression(1, 50), nil
	}
	res, err := GridSearch(context.Background(), factory, grid, X, y, Options{Folds: 3, Seed: 42, Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, res.BestIndex)
	assert.Equal(t, map[string]float64{"reg_lambda": 1}, res.BestParams)
}

func TestGridSearchErrors(t *testing.T) {
	X, y := makeData(100, 3)

	_, err := GridSearch(context.Background(), XGBoostFactory(42), Grid{{Name: "gamma", Values: []float64{1}}}, X, y, DefaultOptions())
	assert.ErrorContains(t, err, "unknown xgboost parameter")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = GridSearch(ctx, XGBoostFactory(42), Grid{{Name: "n_estimators", Values: []float64{5}}}, X, y, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
