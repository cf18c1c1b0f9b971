package models

import "time"

// ModelKind identifies a classifier family
type ModelKind string

const (
	ModelKindBagging            ModelKind = "bagging"
	ModelKindRandomForest       ModelKind = "random_forest"
	ModelKindGradientBoosting   ModelKind = "gradient_boosting"
	ModelKindAdaBoost           ModelKind = "adaboost"
	ModelKindXGBoost            ModelKind = "xgboost"
	ModelKindLogisticRegression ModelKind = "logistic_regression"
	ModelKindVoting             ModelKind = "voting"
	ModelKindStacking           ModelKind = "stacking"
)

// SelectionMetric is the metric used to pick the persisted model
const SelectionMetric = "roc_auc"

// PerformanceMetrics holds binary classification metrics for the positive class
type PerformanceMetrics struct {
	Model           string  `json:"model"`
	ROCAUC          float64 `json:"roc_auc"`
	F1Score         float64 `json:"f1_score"`
	Precision       float64 `json:"precision"`
	Recall          float64 `json:"recall"`
	Accuracy        float64 `json:"accuracy"`
	ConfusionMatrix [][]int `json:"confusion_matrix,omitempty"` // Actual -> Predicted, labels 0 and 1
}

// TuningSummary describes the outcome of the hyperparameter search
type TuningSummary struct {
	Family       ModelKind          `json:"family"`
	BestParams   map[string]float64 `json:"best_params"`
	BestCVScore  float64            `json:"best_cv_score"`
	Folds        int                `json:"folds"`
	Combinations int                `json:"combinations"`
}

// ModelMetadata is persisted next to the selected model for introspection
type ModelMetadata struct {
	RunID               string                `json:"run_id"`
	ModelName           string                `json:"model_name"`
	ModelKind           ModelKind             `json:"model_kind"`
	SelectionMetric     string                `json:"selection_metric"`
	Metrics             *PerformanceMetrics   `json:"metrics"`
	Candidates          []*PerformanceMetrics `json:"candidates"`
	Tuning              *TuningSummary        `json:"tuning,omitempty"`
	DataPath            string                `json:"data_path"`
	TrainRows           int                   `json:"train_rows"`
	TestRows            int                   `json:"test_rows"`
	TrainPositiveRate   float64               `json:"train_positive_rate"`
	TestPositiveRate    float64               `json:"test_positive_rate"`
	NumericFeatures     []string              `json:"numeric_features"`
	CategoricalFeatures []string              `json:"categorical_features"`
	FeatureCount        int                   `json:"feature_count"`
	EncodedWidth        int                   `json:"encoded_width"`
	TrainedAt           time.Time             `json:"trained_at"`
}
