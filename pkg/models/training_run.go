package models

import "time"

// RunStatus represents the lifecycle state of a training run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// TrainingRun is one entry of the training history
type TrainingRun struct {
	ID         string         `json:"id"`
	Status     RunStatus      `json:"status"`
	DataPath   string         `json:"data_path"`
	BestModel  string         `json:"best_model,omitempty"`
	TestROCAUC float64        `json:"test_roc_auc,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Metadata   *ModelMetadata `json:"metadata,omitempty"`
}

// Duration returns how long the run took, or zero while it is still running
func (r *TrainingRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
