package preprocess

import (
	"fmt"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
)

// Options configures Preprocess
type Options struct {
	Target       string
	TestFraction float64
	Seed         int64
}

// DefaultOptions matches the training defaults: 20% test, seed 42
func DefaultOptions() Options {
	return Options{Target: "Attrition", TestFraction: 0.2, Seed: 42}
}

// Split holds the encoded partitions along with the transform that produced them
type Split struct {
	XTrain    [][]float64
	YTrain    []float64
	XTest     [][]float64
	YTest     []float64
	Transform *FittedTransform
	// Features is the ordered list of input columns, i.e. the training table minus the target
	Features []string
	Train    *dataset.Table
	Test     *dataset.Table
}

// Preprocess splits the table, fits the transform on the training rows and
// encodes both partitions
func Preprocess(table *dataset.Table, opts Options) (*Split, error) {
	if !table.Has(opts.Target) {
		return nil, fmt.Errorf("target column %s not found", opts.Target)
	}

	train, test, err := StratifiedSplit(table, opts.Target, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to split: %w", err)
	}

	numeric, categorical := FeatureGroups(train, opts.Target)
	ft, err := Fit(train, numeric, categorical)
	if err != nil {
		return nil, fmt.Errorf("failed to fit transform: %w", err)
	}

	split := &Split{Transform: ft, Train: train, Test: test}
	for _, name := range train.Columns() {
		if name != opts.Target {
			split.Features = append(split.Features, name)
		}
	}

	if split.XTrain, err = ft.Transform(train); err != nil {
		return nil, fmt.Errorf("failed to transform train: %w", err)
	}
	if split.XTest, err = ft.Transform(test); err != nil {
		return nil, fmt.Errorf("failed to transform test: %w", err)
	}
	if split.YTrain, err = Labels(train, opts.Target); err != nil {
		return nil, err
	}
	if split.YTest, err = Labels(test, opts.Target); err != nil {
		return nil, err
	}
	return split, nil
}

// PositiveRate returns the share of 1 labels
func PositiveRate(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	pos := 0.0
	for _, v := range y {
		pos += v
	}
	return pos / float64(len(y))
}
