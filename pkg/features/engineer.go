// Package features derives the behavioural risk indicators used by the
// attrition models.
package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
)

// Derived column names, in the order they are appended
const (
	YearsPerPromotion     = "YearsPerPromotion"
	SalaryGrowthGap       = "SalaryGrowthGap"
	SatisfactionComposite = "SatisfactionComposite"
	EngagementScore       = "EngagementScore"
	CareerVelocity        = "CareerVelocity"
	OvertimeSeniorityRisk = "OvertimeSeniorityRisk"
	LoyaltyScore          = "LoyaltyScore"
	DistanceWorklifeRisk  = "DistanceWorklifeRisk"
)

// Names lists every derived column
var Names = []string{
	YearsPerPromotion, SalaryGrowthGap, SatisfactionComposite, EngagementScore,
	CareerVelocity, OvertimeSeniorityRisk, LoyaltyScore, DistanceWorklifeRisk,
}

type inputMode int

const (
	required inputMode = iota
	// withDefault substitutes a constant for an absent column or missing cell
	withDefault
	// skippable yields NaN for an absent column or missing cell
	skippable
)

type input struct {
	column       string
	mode         inputMode
	defaultValue float64
}

func need(column string) input { return input{column: column, mode: required} }

func orDefault(column string, v float64) input {
	return input{column: column, mode: withDefault, defaultValue: v}
}

func optional(column string) input { return input{column: column, mode: skippable} }

type derivation struct {
	name    string
	inputs  []input
	compute func(in [][]float64) ([]float64, error)
}

// derivations is the field table: each derived column with its inputs and defaults
var derivations = []derivation{
	{
		name:   YearsPerPromotion,
		inputs: []input{need("YearsAtCompany"), need("YearsWithCurrManager")},
		compute: rowwise(func(v []float64) float64 {
			return v[0] / (v[1] + 1)
		}),
	},
	{
		name:   SalaryGrowthGap,
		inputs: []input{need("PercentSalaryHike")},
		compute: func(in [][]float64) ([]float64, error) {
			hikes := in[0]
			if len(hikes) == 0 {
				return []float64{}, nil
			}
			mean := stat.Mean(hikes, nil)
			out := make([]float64, len(hikes))
			for i, h := range hikes {
				out[i] = h - mean
			}
			return out, nil
		},
	},
	{
		name: SatisfactionComposite,
		inputs: []input{
			optional("JobSatisfaction"),
			optional("EnvironmentSatisfaction"),
			optional("RelationshipSatisfaction"),
			optional("WorkLifeBalance"),
		},
		compute: func(in [][]float64) ([]float64, error) {
			n := len(in[0])
			out := make([]float64, n)
			for i := 0; i < n; i++ {
				sum, count := 0.0, 0
				for _, col := range in {
					if !math.IsNaN(col[i]) {
						sum += col[i]
						count++
					}
				}
				if count == 0 {
					return nil, fmt.Errorf("%s: row %d has no satisfaction values to average", SatisfactionComposite, i)
				}
				out[i] = sum / float64(count)
			}
			return out, nil
		},
	},
	{
		name: EngagementScore,
		inputs: []input{
			orDefault("JobInvolvement", 2),
			orDefault("JobSatisfaction", 2),
			orDefault("WorkLifeBalance", 2),
		},
		compute: rowwise(func(v []float64) float64 {
			return 0.4*v[0] + 0.3*v[1] + 0.3*v[2]
		}),
	},
	{
		name:   CareerVelocity,
		inputs: []input{need("JobLevel"), need("YearsAtCompany")},
		compute: rowwise(func(v []float64) float64 {
			return v[0] / (v[1] + 1)
		}),
	},
	{
		name:   OvertimeSeniorityRisk,
		inputs: []input{need("OverTime"), need("TotalWorkingYears")},
		compute: rowwise(func(v []float64) float64 {
			return v[0] * v[1]
		}),
	},
	{
		name:   LoyaltyScore,
		inputs: []input{need("YearsAtCompany"), need("TotalWorkingYears")},
		compute: rowwise(func(v []float64) float64 {
			return v[0] / (v[1] + 1)
		}),
	},
	{
		name:   DistanceWorklifeRisk,
		inputs: []input{need("DistanceFromHome"), need("WorkLifeBalance")},
		compute: rowwise(func(v []float64) float64 {
			return v[0] * (5 - v[1])
		}),
	},
}

func rowwise(f func(v []float64) float64) func(in [][]float64) ([]float64, error) {
	return func(in [][]float64) ([]float64, error) {
		n := len(in[0])
		out := make([]float64, n)
		row := make([]float64, len(in))
		for i := 0; i < n; i++ {
			for j := range in {
				row[j] = in[j][i]
			}
			out[i] = f(row)
		}
		return out, nil
	}
}

// Engineer appends the derived columns to a copy of table, overwriting any
// existing column of the same name. SalaryGrowthGap is relative to the mean
// of the rows passed in, so a single-row table always gets 0.
func Engineer(table *dataset.Table) (*dataset.Table, error) {
	out := table
	for _, d := range derivations {
		in := make([][]float64, len(d.inputs))
		skipped := 0
		for j, spec := range d.inputs {
			values, err := resolve(table, spec)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", d.name, err)
			}
			if spec.mode == skippable && !table.Has(spec.column) {
				skipped++
			}
			in[j] = values
		}
		if skipped == len(d.inputs) {
			return nil, fmt.Errorf("%s: none of its input columns are present", d.name)
		}

		values, err := d.compute(in)
		if err != nil {
			return nil, err
		}
		if out, err = out.WithColumn(dataset.NewNumeric(d.name, values)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func resolve(table *dataset.Table, spec input) ([]float64, error) {
	n := table.Len()
	col, ok := table.Column(spec.column)
	if ok && col.Kind != dataset.Numeric {
		return nil, fmt.Errorf("column %s is %s, expected numeric", spec.column, col.Kind)
	}

	switch spec.mode {
	case required:
		if !ok {
			return nil, fmt.Errorf("required column %s not found", spec.column)
		}
		return table.Floats(spec.column)
	default:
		fill := spec.defaultValue
		if spec.mode == skippable {
			fill = math.NaN()
		}
		out := make([]float64, n)
		for i := range out {
			if !ok || col.IsMissing(i) {
				out[i] = fill
			} else {
				out[i] = col.Float(i)
			}
		}
		return out, nil
	}
}
