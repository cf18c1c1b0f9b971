package classifier

import (
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// Voting averages member probabilities with fixed weights (soft voting)
type Voting struct {
	Members []Classifier
	Weights []float64
}

// NewVoting creates a soft-voting ensemble of untrained members
func NewVoting(members []Classifier, weights []float64) (*Voting, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("voting needs at least one member")
	}
	if weights == nil {
		weights = make([]float64, len(members))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(members) {
		return nil, fmt.Errorf("voting has %d members but %d weights", len(members), len(weights))
	}
	return &Voting{Members: members, Weights: weights}, nil
}

// Fit trains every member on the full data concurrently
func (v *Voting) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	if len(v.Members) == 0 {
		return fmt.Errorf("voting has no members")
	}
	var g errgroup.Group
	for i, m := range v.Members {
		g.Go(func() error {
			if err := m.Fit(X, y); err != nil {
				return fmt.Errorf("voting member %d (%s): %w", i, m.Kind(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (v *Voting) PredictProba(X [][]float64) ([]float64, error) {
	if len(v.Members) == 0 {
		return nil, fmt.Errorf("voting has no members")
	}
	if len(v.Weights) != len(v.Members) {
		return nil, fmt.Errorf("voting has %d members but %d weights", len(v.Members), len(v.Weights))
	}
	out := make([]float64, len(X))
	total := 0.0
	for i, m := range v.Members {
		p, err := m.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for r := range out {
			out[r] += v.Weights[i] * p[r]
		}
		total += v.Weights[i]
	}
	for r := range out {
		out[r] /= total
	}
	return out, nil
}

func (v *Voting) Predict(X [][]float64) ([]float64, error) {
	return predictWith(v, X)
}

func (v *Voting) Kind() models.ModelKind { return models.ModelKindVoting }

type votingJSON struct {
	Members []json.RawMessage `json:"members"`
	Weights []float64         `json:"weights"`
}

func (v *Voting) MarshalJSON() ([]byte, error) {
	members, err := marshalMembers(v.Members)
	if err != nil {
		return nil, err
	}
	return json.Marshal(votingJSON{Members: members, Weights: v.Weights})
}

func (v *Voting) UnmarshalJSON(data []byte) error {
	var raw votingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	members, err := unmarshalMembers(raw.Members)
	if err != nil {
		return err
	}
	v.Members, v.Weights = members, raw.Weights
	return nil
}

// Stacking feeds out-of-fold base-model probabilities to a logistic
// regression meta-learner. Base models are then refit on all rows.
type Stacking struct {
	Estimators []Classifier
	Final      *LogisticRegression
	Folds      int

	factories []Factory
}

// NewStacking creates a stacking ensemble. Each factory must return a fresh
// untrained base model; it is called once per fold plus once for the refit.
func NewStacking(factories []Factory, final *LogisticRegression, folds int) (*Stacking, error) {
	if len(factories) == 0 {
		return nil, fmt.Errorf("stacking needs at least one base estimator")
	}
	if folds < 2 {
		return nil, fmt.Errorf("stacking needs at least 2 folds, got %d", folds)
	}
	return &Stacking{Final: final, Folds: folds, factories: factories}, nil
}

func (s *Stacking) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	if len(s.factories) == 0 {
		return fmt.Errorf("stacking: no base estimator factories")
	}

	// Unshuffled stratified folds
	folds, err := StratifiedFolds(y, s.Folds, nil)
	if err != nil {
		return fmt.Errorf("stacking: %w", err)
	}

	meta := make([][]float64, len(X))
	for i := range meta {
		meta[i] = make([]float64, len(s.factories))
	}

	var g errgroup.Group
	for j, factory := range s.factories {
		for f := range folds {
			g.Go(func() error {
				trainIdx, validIdx := FoldSplit(folds, f)
				xt, yt := Rows(X, y, trainIdx)
				xv, _ := Rows(X, y, validIdx)

				model := factory()
				if err := model.Fit(xt, yt); err != nil {
					return fmt.Errorf("stacking base %d fold %d: %w", j, f, err)
				}
				p, err := model.PredictProba(xv)
				if err != nil {
					return err
				}
				// Each (row, estimator) cell is written by exactly one goroutine
				for k, i := range validIdx {
					meta[i][j] = p[k]
				}
				return nil
			})
		}
	}

	estimators := make([]Classifier, len(s.factories))
	for j, factory := range s.factories {
		g.Go(func() error {
			model := factory()
			if err := model.Fit(X, y); err != nil {
				return fmt.Errorf("stacking base %d refit: %w", j, err)
			}
			estimators[j] = model
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.Final.Fit(meta, y); err != nil {
		return fmt.Errorf("stacking meta-learner: %w", err)
	}
	s.Estimators = estimators
	return nil
}

func (s *Stacking) PredictProba(X [][]float64) ([]float64, error) {
	if len(s.Estimators) == 0 {
		return nil, ErrNotFitted
	}
	meta := make([][]float64, len(X))
	for i := range meta {
		meta[i] = make([]float64, len(s.Estimators))
	}
	for j, m := range s.Estimators {
		p, err := m.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for i := range meta {
			meta[i][j] = p[i]
		}
	}
	return s.Final.PredictProba(meta)
}

func (s *Stacking) Predict(X [][]float64) ([]float64, error) {
	return predictWith(s, X)
}

func (s *Stacking) Kind() models.ModelKind { return models.ModelKindStacking }

type stackingJSON struct {
	Estimators []json.RawMessage   `json:"estimators"`
	Final      *LogisticRegression `json:"final"`
	Folds      int                 `json:"folds"`
}

func (s *Stacking) MarshalJSON() ([]byte, error) {
	estimators, err := marshalMembers(s.Estimators)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stackingJSON{Estimators: estimators, Final: s.Final, Folds: s.Folds})
}

func (s *Stacking) UnmarshalJSON(data []byte) error {
	var raw stackingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	estimators, err := unmarshalMembers(raw.Estimators)
	if err != nil {
		return err
	}
	s.Estimators, s.Final, s.Folds = estimators, raw.Final, raw.Folds
	return nil
}

func marshalMembers(members []Classifier) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(members))
	for i, m := range members {
		data, err := Marshal(m)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

func unmarshalMembers(raw []json.RawMessage) ([]Classifier, error) {
	out := make([]Classifier, len(raw))
	for i, data := range raw {
		m, err := Unmarshal(data)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}
