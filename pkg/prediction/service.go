package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/mimir-aip/attrition-risk/pkg/artifacts"
	"github.com/mimir-aip/attrition-risk/pkg/dataset"
	"github.com/mimir-aip/attrition-risk/pkg/features"
	"github.com/mimir-aip/attrition-risk/pkg/logging"
	"github.com/mimir-aip/attrition-risk/pkg/metrics"
	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// Loader supplies the persisted artifact bundle
type Loader interface {
	Load() (*artifacts.Bundle, error)
}

// Service scores single employee records against the persisted model.
// The bundle is loaded on first use and cached; Reload swaps in a new one.
type Service struct {
	loader  Loader
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	bundle *artifacts.Bundle
}

// NewService creates a prediction service. m may be nil.
func NewService(loader Loader, logger *logging.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		loader:  loader,
		logger:  logger.With(logging.Component("prediction")),
		metrics: m,
	}
}

// Predict validates the record, then returns the attrition probability,
// risk tier and recommended actions. Missing artifacts are reported as
// artifacts.ErrArtifactsMissing; invalid input as *models.ValidationError.
func (s *Service) Predict(ctx context.Context, record *models.EmployeeRecord) (*models.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("no employee record")
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	bundle, err := s.current()
	if err != nil {
		return nil, err
	}

	X, err := Prepare(bundle, record)
	if err != nil {
		return nil, err
	}
	proba, err := bundle.Model.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("failed to score record: %w", err)
	}
	pred, err := bundle.Model.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("failed to classify record: %w", err)
	}

	level := models.RiskLevelFromProbability(proba[0])
	result := &models.PredictionResult{
		WillAttrite:          pred[0] == 1,
		AttritionProbability: math.Round(proba[0]*1e4) / 1e4,
		RiskLevel:            level,
		RecommendedActions:   level.Actions(),
		Status:               "success",
	}

	elapsed := time.Since(start)
	s.metrics.ObservePrediction(level.String(), elapsed)
	s.logger.Debug("prediction served",
		logging.Float("probability", result.AttritionProbability),
		logging.String("risk_level", level.String()),
		logging.Duration("elapsed", elapsed),
	)
	return result, nil
}

// Reload loads the bundle again and swaps it in. On error the previously
// loaded bundle, if any, stays in service.
func (s *Service) Reload() error {
	bundle, err := s.loader.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bundle = bundle
	s.mu.Unlock()
	s.logger.Info("model reloaded", logging.String("model", bundle.Metadata.ModelName), logging.String("run_id", bundle.Metadata.RunID))
	return nil
}

// Metadata returns the metadata document of the bundle being served, so it
// always describes the model that answers Predict
func (s *Service) Metadata() ([]byte, error) {
	bundle, err := s.current()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(bundle.Metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode model metadata: %w", err)
	}
	return data, nil
}

// Ready reports whether a bundle can be served, loading it if needed
func (s *Service) Ready() bool {
	_, err := s.current()
	return err == nil
}

func (s *Service) current() (*artifacts.Bundle, error) {
	s.mu.RLock()
	bundle := s.bundle
	s.mu.RUnlock()
	if bundle != nil {
		return bundle, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bundle != nil {
		return s.bundle, nil
	}
	bundle, err := s.loader.Load()
	if err != nil {
		return nil, err
	}
	s.bundle = bundle
	s.logger.Info("model loaded", logging.String("model", bundle.Metadata.ModelName))
	return bundle, nil
}

// Prepare turns a record into the model's input row: engineer features,
// reindex to the persisted feature list and apply the fitted transform
func Prepare(bundle *artifacts.Bundle, record *models.EmployeeRecord) ([][]float64, error) {
	table, err := RecordTable(record)
	if err != nil {
		return nil, err
	}
	table, err = features.Engineer(table)
	if err != nil {
		return nil, fmt.Errorf("failed to engineer features: %w", err)
	}
	table, err = Reindex(table, bundle.Features, bundle.Transform.IsCategorical)
	if err != nil {
		return nil, err
	}
	X, err := bundle.Transform.Transform(table)
	if err != nil {
		return nil, fmt.Errorf("failed to transform record: %w", err)
	}
	return X, nil
}

// RecordTable builds a one-row table from a record's fields
func RecordTable(record *models.EmployeeRecord) (*dataset.Table, error) {
	values := record.Values()
	cols := make([]*dataset.Series, 0, len(values))
	for _, v := range values {
		if v.Categorical {
			cols = append(cols, dataset.NewCategorical(v.Name, []string{v.Text}))
		} else {
			cols = append(cols, dataset.NewNumeric(v.Name, []float64{v.Number}))
		}
	}
	return dataset.New(cols...)
}

// Reindex orders the table's columns exactly as names, dropping extras.
// Absent columns are filled with 0: the string "0" for categorical
// columns, which encodes as all zeros, and the number 0 otherwise.
func Reindex(table *dataset.Table, names []string, categorical func(string) bool) (*dataset.Table, error) {
	n := table.Len()
	for _, name := range names {
		if table.Has(name) {
			continue
		}
		var col *dataset.Series
		if categorical(name) {
			fill := make([]string, n)
			for i := range fill {
				fill[i] = "0"
			}
			col = dataset.NewCategorical(name, fill)
		} else {
			col = dataset.NewNumeric(name, make([]float64, n))
		}
		var err error
		if table, err = table.WithColumn(col); err != nil {
			return nil, err
		}
	}
	return table.Select(names...)
}
