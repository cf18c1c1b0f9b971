package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/attrition-risk/pkg/artifacts"
	"github.com/mimir-aip/attrition-risk/pkg/cleaning"
	"github.com/mimir-aip/attrition-risk/pkg/dataset"
	"github.com/mimir-aip/attrition-risk/pkg/features"
	"github.com/mimir-aip/attrition-risk/pkg/metrics"
	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/classifier"
	"github.com/mimir-aip/attrition-risk/pkg/models"
	"github.com/mimir-aip/attrition-risk/pkg/preprocess"
)

type fakeLoader struct {
	mu     sync.Mutex
	bundle *artifacts.Bundle
	err    error
	calls  int
}

func (f *fakeLoader) Load() (*artifacts.Bundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bundle, nil
}

func trainedBundle(t *testing.T, name string) *artifacts.Bundle {
	t.Helper()
	cleaned, err := cleaning.Clean(dataset.SyntheticHR(200, 3), cleaning.DefaultOptions())
	require.NoError(t, err)
	engineered, err := features.Engineer(cleaned)
	require.NoError(t, err)
	split, err := preprocess.Preprocess(engineered, preprocess.DefaultOptions())
	require.NoError(t, err)

	model := classifier.NewLogisticRegression(1, 100)
	require.NoError(t, model.Fit(split.XTrain, split.YTrain))
	return &artifacts.Bundle{
		Transform: split.Transform,
		Features:  split.Features,
		Model:     model,
		Metadata:  &models.ModelMetadata{RunID: "run", ModelName: name},
	}
}

func TestPredict(t *testing.T) {
	loader := &fakeLoader{bundle: trainedBundle(t, "Logistic")}
	m := metrics.New()
	svc := NewService(loader, nil, m)

	res, err := svc.Predict(context.Background(), models.ExampleEmployee())
	require.NoError(t, err)

	assert.Equal(t, "success", res.Status)
	assert.GreaterOrEqual(t, res.AttritionProbability, 0.0)
	assert.LessOrEqual(t, res.AttritionProbability, 1.0)
	assert.Equal(t, res.AttritionProbability, math.Round(res.AttritionProbability*1e4)/1e4)
	assert.Equal(t, models.RiskLevelFromProbability(res.AttritionProbability), res.RiskLevel)
	assert.Equal(t, res.RiskLevel.Actions(), res.RecommendedActions)

	// Cached after the first load
	_, err = svc.Predict(context.Background(), models.ExampleEmployee())
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
}

func TestPredictMatchesDirectScoring(t *testing.T) {
	bundle := trainedBundle(t, "Logistic")
	svc := NewService(&fakeLoader{bundle: bundle}, nil, nil)
	record := models.ExampleEmployee()

	X, err := Prepare(bundle, record)
	require.NoError(t, err)
	require.Len(t, X, 1)
	assert.Len(t, X[0], bundle.Transform.Width())
	proba, err := bundle.Model.PredictProba(X)
	require.NoError(t, err)

	res, err := svc.Predict(context.Background(), record)
	require.NoError(t, err)
	assert.InDelta(t, proba[0], res.AttritionProbability, 5e-5)
	assert.Equal(t, proba[0] > 0.5, res.WillAttrite)
}

func TestPredictMissingArtifacts(t *testing.T) {
	missing := fmt.Errorf("%w: best_model.json", artifacts.ErrArtifactsMissing)
	svc := NewService(&fakeLoader{err: missing}, nil, nil)

	_, err := svc.Predict(context.Background(), models.ExampleEmployee())
	assert.ErrorIs(t, err, artifacts.ErrArtifactsMissing)
	assert.False(t, svc.Ready())
}

func TestPredictValidatesFirst(t *testing.T) {
	loader := &fakeLoader{err: artifacts.ErrArtifactsMissing}
	svc := NewService(loader, nil, nil)

	record := models.ExampleEmployee()
	age := 99
	record.Age = &age
	_, err := svc.Predict(context.Background(), record)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "Age")
	assert.Equal(t, 0, loader.calls)
}

func TestPredictCancelled(t *testing.T) {
	svc := NewService(&fakeLoader{bundle: trainedBundle(t, "x")}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Predict(ctx, models.ExampleEmployee())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReload(t *testing.T) {
	loader := &fakeLoader{bundle: trainedBundle(t, "first")}
	svc := NewService(loader, nil, nil)
	require.True(t, svc.Ready())

	loader.bundle = trainedBundle(t, "second")
	require.NoError(t, svc.Reload())
	b, err := svc.current()
	require.NoError(t, err)
	assert.Equal(t, "second", b.Metadata.ModelName)

	// A failed reload keeps serving the previous bundle
	loader.err = errors.New("disk gone")
	assert.Error(t, svc.Reload())
	b, err = svc.current()
	require.NoError(t, err)
	assert.Equal(t, "second", b.Metadata.ModelName)
}

func TestMetadataFollowsServedBundle(t *testing.T) {
	loader := &fakeLoader{bundle: trainedBundle(t, "first")}
	svc := NewService(loader, nil, nil)

	data, err := svc.Metadata()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"model_name": "first"`)

	// A newer set on disk is not reported until it is served
	loader.bundle = trainedBundle(t, "second")
	data, err = svc.Metadata()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"model_name": "first"`)

	require.NoError(t, svc.Reload())
	data, err = svc.Metadata()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"model_name": "second"`)

	_, err = NewService(&fakeLoader{err: artifacts.ErrArtifactsMissing}, nil, nil).Metadata()
	assert.ErrorIs(t, err, artifacts.ErrArtifactsMissing)
}

func TestConcurrentPredictAndReload(t *testing.T) {
	loader := &fakeLoader{bundle: trainedBundle(t, "a")}
	svc := NewService(loader, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := svc.Predict(context.Background(), models.ExampleEmployee())
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		assert.NoError(t, svc.Reload())
	}
	wg.Wait()
}

func TestReindex(t *testing.T) {
	table := dataset.MustNew(
		dataset.NewNumeric("Age", []float64{30}),
		dataset.NewCategorical("Extra", []string{"x"}),
		dataset.NewNumeric("JobLevel", []float64{2}),
	)
	categorical := func(name string) bool { return name == "Department" }

	out, err := Reindex(table, []string{"JobLevel", "Department", "Age", "MonthlyIncome"}, categorical)
	require.NoError(t, err)
	assert.Equal(t, []string{"JobLevel", "Department", "Age", "MonthlyIncome"}, out.Columns())

	dept, _ := out.Column("Department")
	assert.Equal(t, dataset.Categorical, dept.Kind)
	assert.Equal(t, "0", dept.Text(0))
	income, _ := out.Column("MonthlyIncome")
	assert.Equal(t, dataset.Numeric, income.Kind)
	assert.Equal(t, 0.0, income.Float(0))

	// The input is untouched
	assert.Equal(t, []string{"Age", "Extra", "JobLevel"}, table.Columns())
}

func TestRecordTable(t *testing.T) {
	table, err := RecordTable(models.ExampleEmployee())
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 30, table.Width())

	dept, ok := table.Column("Department")
	require.True(t, ok)
	assert.Equal(t, dataset.Categorical, dept.Kind)
	age, _ := table.Column("Age")
	assert.Equal(t, 32.0, age.Float(0))
}
