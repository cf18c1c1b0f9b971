// Package preprocess splits the engineered table and turns it into the
// scaled, one-hot encoded matrix the classifiers consume.
package preprocess

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
)

// NumericScaler standardises one column to zero mean and unit variance
type NumericScaler struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

// CategoryEncoder one-hot encodes one column over a sorted vocabulary
type CategoryEncoder struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`
}

// FittedTransform is fit once on the training partition and is read-only
// afterwards, so it is safe for concurrent use.
type FittedTransform struct {
	Numeric     []NumericScaler   `json:"numeric"`
	Categorical []CategoryEncoder `json:"categorical"`
}

// FeatureGroups splits the non-target columns by kind, keeping table order
func FeatureGroups(table *dataset.Table, target string) (numeric, categorical []string) {
	for _, s := range table.Series() {
		if s.Name == target {
			continue
		}
		if s.Kind == dataset.Numeric {
			numeric = append(numeric, s.Name)
		} else {
			categorical = append(categorical, s.Name)
		}
	}
	return numeric, categorical
}

// Fit learns the population mean/std of each numeric column and the sorted
// vocabulary of each categorical column
func Fit(train *dataset.Table, numeric, categorical []string) (*FittedTransform, error) {
	if train.Len() == 0 {
		return nil, fmt.Errorf("cannot fit on an empty table")
	}

	ft := &FittedTransform{}
	for _, name := range numeric {
		values, err := train.Floats(name)
		if err != nil {
			return nil, err
		}
		mean, std := stat.PopMeanStdDev(values, nil)
		if std == 0 {
			std = 1
		}
		ft.Numeric = append(ft.Numeric, NumericScaler{Column: name, Mean: mean, Scale: std})
	}

	for _, name := range categorical {
		col, ok := train.Column(name)
		if !ok {
			return nil, fmt.Errorf("column %s not found", name)
		}
		seen := make(map[string]bool)
		for i := 0; i < col.Len(); i++ {
			if !col.IsMissing(i) {
				seen[col.Text(i)] = true
			}
		}
		vocab := make([]string, 0, len(seen))
		for v := range seen {
			vocab = append(vocab, v)
		}
		sort.Strings(vocab)
		ft.Categorical = append(ft.Categorical, CategoryEncoder{Column: name, Categories: vocab})
	}
	return ft, nil
}

// Width is the number of output features
func (ft *FittedTransform) Width() int {
	w := len(ft.Numeric)
	for _, c := range ft.Categorical {
		w += len(c.Categories)
	}
	return w
}

// InputColumns lists every column the transform reads
func (ft *FittedTransform) InputColumns() []string {
	cols := make([]string, 0, len(ft.Numeric)+len(ft.Categorical))
	for _, n := range ft.Numeric {
		cols = append(cols, n.Column)
	}
	for _, c := range ft.Categorical {
		cols = append(cols, c.Column)
	}
	return cols
}

// IsCategorical reports whether the transform one-hot encodes column
func (ft *FittedTransform) IsCategorical(column string) bool {
	for _, c := range ft.Categorical {
		if c.Column == column {
			return true
		}
	}
	return false
}

// OutputNames returns "col" for scaled columns and "col=value" per one-hot slot
func (ft *FittedTransform) OutputNames() []string {
	names := make([]string, 0, ft.Width())
	for _, n := range ft.Numeric {
		names = append(names, n.Column)
	}
	for _, c := range ft.Categorical {
		for _, v := range c.Categories {
			names = append(names, c.Column+"="+v)
		}
	}
	return names
}

// Transform encodes table row by row: scaled numeric columns first, then the
// one-hot blocks. Unseen or missing categories encode as all zeros.
func (ft *FittedTransform) Transform(table *dataset.Table) ([][]float64, error) {
	n := table.Len()
	width := ft.Width()
	out := make([][]float64, n)
	backing := make([]float64, n*width)
	for i := range out {
		out[i] = backing[i*width : (i+1)*width]
	}

	for j, sc := range ft.Numeric {
		values, err := table.Floats(sc.Column)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			out[i][j] = (v - sc.Mean) / sc.Scale
		}
	}

	offset := len(ft.Numeric)
	for _, enc := range ft.Categorical {
		col, ok := table.Column(enc.Column)
		if !ok {
			return nil, fmt.Errorf("column %s not found", enc.Column)
		}
		slot := make(map[string]int, len(enc.Categories))
		for k, v := range enc.Categories {
			slot[v] = k
		}
		for i := 0; i < n; i++ {
			if col.IsMissing(i) {
				continue
			}
			if k, ok := slot[col.Text(i)]; ok {
				out[i][offset+k] = 1
			}
		}
		offset += len(enc.Categories)
	}
	return out, nil
}
