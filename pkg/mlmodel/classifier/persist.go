package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// envelope tags a serialised model with its family
type envelope struct {
	Kind  models.ModelKind `json:"kind"`
	Model json.RawMessage  `json:"model"`
}

// Marshal encodes a trained classifier as {"kind": ..., "model": ...}
func Marshal(c Classifier) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", c.Kind(), err)
	}
	return json.Marshal(envelope{Kind: c.Kind(), Model: body})
}

// Unmarshal decodes a classifier written by Marshal
func Unmarshal(data []byte) (Classifier, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode model envelope: %w", err)
	}

	var c Classifier
	switch env.Kind {
	case models.ModelKindBagging:
		c = &Bagging{}
	case models.ModelKindRandomForest:
		c = &RandomForest{}
	case models.ModelKindGradientBoosting:
		c = &GradientBoosting{}
	case models.ModelKindAdaBoost:
		c = &AdaBoost{}
	case models.ModelKindXGBoost:
		c = &XGBoost{}
	case models.ModelKindLogisticRegression:
		c = &LogisticRegression{}
	case models.ModelKindVoting:
		c = &Voting{}
	case models.ModelKindStacking:
		c = &Stacking{}
	default:
		return nil, fmt.Errorf("unknown model kind %q", env.Kind)
	}

	if err := json.Unmarshal(env.Model, c); err != nil {
		return nil, fmt.Errorf("failed to decode %s model: %w", env.Kind, err)
	}
	return c, nil
}
