package metadatastore

import (
	"errors"

	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("training run not found")

// MetadataStore persists the training history. It does not hold model
// artifacts; those live in the artifacts directory.
type MetadataStore interface {
	// SaveRun inserts or replaces a run by id
	SaveRun(run *models.TrainingRun) error
	GetRun(id string) (*models.TrainingRun, error)
	// ListRuns returns the most recent runs first, at most limit of them
	ListRuns(limit int) ([]*models.TrainingRun, error)

	Close() error
}
