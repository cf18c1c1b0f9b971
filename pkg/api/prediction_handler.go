package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mimir-aip/attrition-risk/pkg/artifacts"
	"github.com/mimir-aip/attrition-risk/pkg/logging"
	"github.com/mimir-aip/attrition-risk/pkg/metadatastore"
	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// ModelMissingMessage is the 503 detail when no model has been trained
const ModelMissingMessage = "Model not found. Please run training first."

// Predictor scores one employee record
type Predictor interface {
	Predict(ctx context.Context, record *models.EmployeeRecord) (*models.PredictionResult, error)
}

// MetadataSource returns the metadata document of the model being served
type MetadataSource interface {
	Metadata() ([]byte, error)
}

// PredictionHandler handles prediction and model introspection requests
type PredictionHandler struct {
	predictor Predictor
	metadata  MetadataSource
	logger    *logging.Logger
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(predictor Predictor, metadata MetadataSource, logger *logging.Logger) *PredictionHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PredictionHandler{
		predictor: predictor,
		metadata:  metadata,
		logger:    logger.With(logging.Component("api")),
	}
}

// HandlePredict handles POST /predict
func (h *PredictionHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var record models.EmployeeRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeErrorResponse(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.predictor.Predict(r.Context(), &record)
	var verr *models.ValidationError
	switch {
	case err == nil:
		writeJSONResponse(w, http.StatusOK, result)
	case errors.As(err, &verr):
		writeValidationErrorResponse(w, verr.Fields)
	case errors.Is(err, artifacts.ErrArtifactsMissing):
		writeErrorResponse(w, http.StatusServiceUnavailable, ModelMissingMessage)
	default:
		h.logger.Error("prediction failed", err)
		writeInternalServerErrorResponse(w, err.Error())
	}
}

// HandleModelInfo handles GET /model-info
func (h *PredictionHandler) HandleModelInfo(w http.ResponseWriter, r *http.Request) {
	data, err := h.metadata.Metadata()
	if errors.Is(err, artifacts.ErrArtifactsMissing) {
		writeErrorResponse(w, http.StatusNotFound, "Model metadata not found. Train the model first.")
		return
	}
	if err != nil {
		h.logger.Error("failed to read model metadata", err)
		writeInternalServerErrorResponse(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// TrainingRunHandler serves the training history
type TrainingRunHandler struct {
	history metadatastore.MetadataStore
}

// NewTrainingRunHandler creates a new training run handler
func NewTrainingRunHandler(history metadatastore.MetadataStore) *TrainingRunHandler {
	return &TrainingRunHandler{history: history}
}

// HandleListRuns handles GET /training-runs?limit=N
func (h *TrainingRunHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.history.ListRuns(parseLimit(r, 20, 500))
	if err != nil {
		writeInternalServerErrorResponse(w, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.TrainingRun{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// HandleGetRun handles GET /training-runs/{id}
func (h *TrainingRunHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, err := h.history.GetRun(id)
	if errors.Is(err, metadatastore.ErrRunNotFound) {
		writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("Training run %s not found", id))
		return
	}
	if err != nil {
		writeInternalServerErrorResponse(w, err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, run)
}
