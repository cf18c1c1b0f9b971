// Package eda produces the exploratory summary and charts of the cleaned
// HR table that accompany every training run.
package eda

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
)

// SatisfactionColumns are correlated with the label in the summary
var SatisfactionColumns = []string{
	"JobSatisfaction",
	"EnvironmentSatisfaction",
	"RelationshipSatisfaction",
	"WorkLifeBalance",
}

// GroupRate is the attrition rate within one value of a grouping column
type GroupRate struct {
	Group string  `json:"group"`
	Count int     `json:"count"`
	Left  int     `json:"left"`
	Rate  float64 `json:"rate"`
}

// ClassMeans holds a column mean for each class
type ClassMeans struct {
	Stayed float64 `json:"stayed"`
	Left   float64 `json:"left"`
}

// Correlation is the Pearson correlation of a column with the label
type Correlation struct {
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

// Summary describes the label distribution and its main drivers
type Summary struct {
	Rows          int     `json:"rows"`
	Stayed        int     `json:"stayed"`
	Left          int     `json:"left"`
	AttritionRate float64 `json:"attrition_rate"`

	ByDepartment []GroupRate `json:"by_department,omitempty"`
	ByJobRole    []GroupRate `json:"by_job_role,omitempty"`
	ByOverTime   []GroupRate `json:"by_overtime,omitempty"`

	MonthlyIncome *ClassMeans `json:"monthly_income,omitempty"`
	Age           *ClassMeans `json:"age,omitempty"`

	SatisfactionCorrelation []Correlation `json:"satisfaction_correlation,omitempty"`
}

// Summarize computes the summary of a cleaned table whose target column is
// numeric 0/1. Optional columns that are absent are left out.
func Summarize(table *dataset.Table, target string) (*Summary, error) {
	labels, err := table.Floats(target)
	if err != nil {
		return nil, fmt.Errorf("eda needs a numeric %s column: %w", target, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("eda needs at least one row")
	}

	s := &Summary{Rows: len(labels)}
	for i, v := range labels {
		switch v {
		case 1:
			s.Left++
		case 0:
			s.Stayed++
		default:
			return nil, fmt.Errorf("row %d: %s is %v, expected 0 or 1", i, target, v)
		}
	}
	s.AttritionRate = float64(s.Left) / float64(s.Rows)

	s.ByDepartment = groupRates(table, "Department", labels)
	s.ByJobRole = groupRates(table, "JobRole", labels)
	s.ByOverTime = groupRates(table, "OverTime", labels)

	if s.MonthlyIncome, err = classMeans(table, "MonthlyIncome", labels); err != nil {
		return nil, err
	}
	if s.Age, err = classMeans(table, "Age", labels); err != nil {
		return nil, err
	}

	for _, name := range SatisfactionColumns {
		if !table.Has(name) {
			continue
		}
		values, err := table.Floats(name)
		if err != nil {
			return nil, err
		}
		r := stat.Correlation(values, labels, nil)
		if math.IsNaN(r) {
			r = 0
		}
		s.SatisfactionCorrelation = append(s.SatisfactionCorrelation, Correlation{Column: name, Value: r})
	}
	return s, nil
}

// groupRates returns per-group rates sorted by rate, highest first, with
// ties broken by group name
func groupRates(table *dataset.Table, column string, labels []float64) []GroupRate {
	col, ok := table.Column(column)
	if !ok {
		return nil
	}
	byGroup := make(map[string]*GroupRate)
	for i, y := range labels {
		key := col.Text(i)
		g, ok := byGroup[key]
		if !ok {
			g = &GroupRate{Group: key}
			byGroup[key] = g
		}
		g.Count++
		if y == 1 {
			g.Left++
		}
	}

	out := make([]GroupRate, 0, len(byGroup))
	for _, g := range byGroup {
		g.Rate = float64(g.Left) / float64(g.Count)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate > out[j].Rate
		}
		return out[i].Group < out[j].Group
	})
	return out
}

func classMeans(table *dataset.Table, column string, labels []float64) (*ClassMeans, error) {
	if !table.Has(column) {
		return nil, nil
	}
	stayed, left := splitByClass(table, column, labels)
	if stayed == nil && left == nil {
		return nil, fmt.Errorf("column %s is not numeric", column)
	}
	return &ClassMeans{Stayed: mean(stayed), Left: mean(left)}, nil
}

// splitByClass returns a numeric column's values partitioned by label, or
// nil slices when the column is absent or not numeric
func splitByClass(table *dataset.Table, column string, labels []float64) (stayed, left []float64) {
	values, err := table.Floats(column)
	if err != nil {
		return nil, nil
	}
	stayed, left = []float64{}, []float64{}
	for i, v := range values {
		if labels[i] == 1 {
			left = append(left, v)
		} else {
			stayed = append(stayed, v)
		}
	}
	return stayed, left
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
