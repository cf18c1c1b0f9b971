package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/attrition-risk/pkg/artifacts"
	"github.com/mimir-aip/attrition-risk/pkg/metadatastore"
	"github.com/mimir-aip/attrition-risk/pkg/metrics"
	"github.com/mimir-aip/attrition-risk/pkg/models"
)

type fakePredictor struct {
	err      error
	panicked bool
}

func (f *fakePredictor) Predict(_ context.Context, record *models.EmployeeRecord) (*models.PredictionResult, error) {
	if f.panicked {
		panic("boom")
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.PredictionResult{
		WillAttrite:          true,
		AttritionProbability: 0.7312,
		RiskLevel:            models.RiskLevelHigh,
		RecommendedActions:   models.RiskLevelHigh.Actions(),
		Status:               "success",
	}, nil
}

type fakeMetadata struct {
	data []byte
	err  error
}

func (f *fakeMetadata) Metadata() ([]byte, error) { return f.data, f.err }

func setupServer(t *testing.T, predictor Predictor, meta MetadataSource) (*Server, metadatastore.MetadataStore) {
	t.Helper()
	history, err := metadatastore.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	s := NewServer("0", NewPredictionHandler(predictor, meta, nil), NewTrainingRunHandler(history), metrics.New(), nil)
	return s, history
}

func do(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func exampleBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.ExampleEmployee())
	require.NoError(t, err)
	return body
}

func TestRootAndHealth(t *testing.T) {
	s, _ := setupServer(t, &fakePredictor{}, &fakeMetadata{})

	rec := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"status":  "Online",
		"service": ServiceName,
		"version": Version,
		"docs":    "/docs",
	}, decode(t, rec))

	rec = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDocsListsRoutes(t *testing.T) {
	s, _ := setupServer(t, &fakePredictor{}, &fakeMetadata{})
	rec := do(t, s, http.MethodGet, "/docs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"/predict"`)
	assert.Contains(t, rec.Body.String(), `"/model-info"`)
}

func TestPredictSuccess(t *testing.T) {
	s, _ := setupServer(t, &fakePredictor{}, &fakeMetadata{})

	rec := do(t, s, http.MethodPost, "/predict", exampleBody(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["will_attrite"])
	assert.Equal(t, 0.7312, body["attrition_probability"])
	assert.Equal(t, "High", body["risk_level"])
	assert.Equal(t, "success", body["status"])
	assert.Len(t, body["recommended_actions"], len(models.RiskLevelHigh.Actions()))
}

func TestPredictValidationError(t *testing.T) {
	s, _ := setupServer(t, &fakePredictor{}, &fakeMetadata{})

	var record map[string]any
	require.NoError(t, json.Unmarshal(exampleBody(t), &record))
	record["Age"] = 17
	delete(record, "JobRole")
	record["Unknown"] = "ignored"
	body, err := json.Marshal(record)
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "error", out["status"])
	fields, ok := out["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "Age")
	assert.Contains(t, fields, "JobRole")
	assert.NotContains(t, fields, "Unknown")
}

func TestPredictMalformedBody(t *testing.T) {
	s, _ := setupServer(t, &fakePredictor{}, &fakeMetadata{})

	rec := do(t, s, http.MethodPost, "/predict", []byte(`{"Age": "thirty"`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
}

func TestPredictErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		detail string
	}{
		{"missing artifacts", fmt.Errorf("%w: best_model.json", artifacts.ErrArtifactsMissing), http.StatusServiceUnavailable, ModelMissingMessage},
		{"unexpected", errors.New("column Foo missing"), http.StatusInternalServerError, "column Foo missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := setupServer(t, &fakePredictor{err: tt.err}, &fakeMetadata{})
			rec := do(t, s, http.MethodPost, "/predict", exampleBody(t))
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, map[string]any{"detail": tt.detail, "status": "error"}, decode(t, rec))
		})
	}
}

func TestPanicRecovered(t *testing.T) {
	s, _ := setupServer(t, &fakePredictor{panicked: true}, &fakeMetadata{})
	rec := do(t, s, http.MethodPost, "/predict", exampleBody(t))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestModelInfo(t *testing.T) {
	doc := []byte(`{"model_name":"XGBoost","selection_metric":"roc_auc"}`)
	s, _ := setupServer(t, &fakePredictor{}, &fakeMetadata{data: doc})

	rec := do(t, s, http.MethodGet, "/model-info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(doc), rec.Body.String())

	s, _ = setupServer(t, &fakePredictor{}, &fakeMetadata{err: artifacts.ErrArtifactsMissing})
	rec = do(t, s, http.MethodGet, "/model-info", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
}

func TestTrainingRuns(t *testing.T) {
	s, history := setupServer(t, &fakePredictor{}, &fakeMetadata{})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, history.SaveRun(&models.TrainingRun{
			ID:        fmt.Sprintf("run-%d", i),
			Status:    models.RunStatusSucceeded,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	rec := do(t, s, http.MethodGet, "/training-runs?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Runs  []models.TrainingRun `json:"runs"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "run-2", out.Runs[0].ID)

	rec = do(t, s, http.MethodGet, "/training-runs/run-0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-0", decode(t, rec)["id"])

	rec = do(t, s, http.MethodGet, "/training-runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := setupServer(t, &fakePredictor{}, &fakeMetadata{})
	do(t, s, http.MethodGet, "/health", nil)

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `attrition_http_requests_total{code="200",method="GET",route="/health"} 1`), rec.Body.String())
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s, _ := setupServer(t, &fakePredictor{}, &fakeMetadata{})

	rec := do(t, s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])

	rec = do(t, s, http.MethodGet, "/predict", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := setupServer(t, &fakePredictor{}, &fakeMetadata{})

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseLimit(t *testing.T) {
	for query, want := range map[string]int{"": 20, "?limit=5": 5, "?limit=-1": 20, "?limit=x": 20, "?limit=9999": 500} {
		req := httptest.NewRequest(http.MethodGet, "/training-runs"+query, nil)
		assert.Equal(t, want, parseLimit(req, 20, 500), query)
	}
}
