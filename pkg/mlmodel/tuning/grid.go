package tuning

import (
	"fmt"
	"sort"
)

// Axis is one hyperparameter and the values to try for it
type Axis struct {
	Name   string
	Values []float64
}

// Grid is an ordered list of axes. Combinations enumerate with the last
// axis varying fastest.
type Grid []Axis

// DefaultXGBoostGrid is the full search space for the tuned family
func DefaultXGBoostGrid() Grid {
	return Grid{
		{Name: "n_estimators", Values: []float64{200, 400}},
		{Name: "max_depth", Values: []float64{3, 5, 7}},
		{Name: "learning_rate", Values: []float64{0.01, 0.05, 0.1}},
		{Name: "subsample", Values: []float64{0.8, 1.0}},
		{Name: "colsample_bytree", Values: []float64{0.7, 0.9}},
		{Name: "scale_pos_weight", Values: []float64{1, 3, 5}},
	}
}

// GridFromMap orders a config-supplied grid: axes named in the default grid
// keep that order, any others follow alphabetically
func GridFromMap(values map[string][]float64) Grid {
	rank := make(map[string]int)
	for i, axis := range DefaultXGBoostGrid() {
		rank[axis.Name] = i
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})

	grid := make(Grid, 0, len(names))
	for _, name := range names {
		grid = append(grid, Axis{Name: name, Values: append([]float64(nil), values[name]...)})
	}
	return grid
}

// Validate rejects empty grids and axes
func (g Grid) Validate() error {
	if len(g) == 0 {
		return fmt.Errorf("grid has no axes")
	}
	seen := make(map[string]bool)
	for _, axis := range g {
		if len(axis.Values) == 0 {
			return fmt.Errorf("grid axis %q has no values", axis.Name)
		}
		if seen[axis.Name] {
			return fmt.Errorf("grid axis %q is repeated", axis.Name)
		}
		seen[axis.Name] = true
	}
	return nil
}

// Size is the number of combinations
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, axis := range g {
		n *= len(axis.Values)
	}
	return n
}

// Combinations lists every parameter assignment in grid order
func (g Grid) Combinations() []map[string]float64 {
	size := g.Size()
	out := make([]map[string]float64, size)
	for c := 0; c < size; c++ {
		params := make(map[string]float64, len(g))
		rest := c
		for a := len(g) - 1; a >= 0; a-- {
			values := g[a].Values
			params[g[a].Name] = values[rest%len(values)]
			rest /= len(values)
		}
		out[c] = params
	}
	return out
}
