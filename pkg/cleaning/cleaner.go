// Package cleaning turns a raw HR extract into a table with no missing
// cells, no duplicate rows and binary flags encoded as 0/1.
package cleaning

import (
	"fmt"
	"sort"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
	"github.com/mimir-aip/attrition-risk/pkg/logging"
)

// Options configures which columns the cleaner drops and encodes
type Options struct {
	ConstantColumns []string
	IDColumn        string
	BinaryColumns   []string
	// Target is only used to log the class distribution
	Target string
	Logger *logging.Logger
}

// DefaultOptions returns the configuration for the IBM HR layout
func DefaultOptions() Options {
	return Options{
		ConstantColumns: []string{"EmployeeCount", "StandardHours", "Over18"},
		IDColumn:        "EmployeeNumber",
		BinaryColumns:   []string{"Attrition", "OverTime"},
		Target:          "Attrition",
	}
}

var binaryValues = map[string]float64{
	"Yes": 1,
	"No":  0,
	"1":   1,
	"0":   0,
}

// Clean drops constant and identifier columns, encodes binary columns,
// removes duplicate rows and imputes missing cells. The input is not modified.
func Clean(table *dataset.Table, opts Options) (*dataset.Table, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With(logging.Component("cleaning"))

	var dropped []string
	for _, name := range append(append([]string(nil), opts.ConstantColumns...), opts.IDColumn) {
		if name != "" && table.Has(name) {
			dropped = append(dropped, name)
		}
	}
	out := table.Drop(dropped...)
	logger.Info("dropped columns", logging.Strings("columns", dropped), logging.Int("rows", out.Len()))

	for _, name := range opts.BinaryColumns {
		col, ok := out.Column(name)
		if !ok {
			continue
		}
		encoded, err := encodeBinary(col)
		if err != nil {
			return nil, err
		}
		if out, err = out.WithColumn(encoded); err != nil {
			return nil, err
		}
	}

	before := out.Len()
	out = dedupe(out)

	binary := make(map[string]bool, len(opts.BinaryColumns))
	for _, name := range opts.BinaryColumns {
		binary[name] = true
	}
	imputed := make([]string, 0)
	for _, col := range out.Series() {
		if col.MissingCount() == 0 {
			continue
		}
		filled, err := impute(col, binary[col.Name])
		if err != nil {
			return nil, err
		}
		if out, err = out.WithColumn(filled); err != nil {
			return nil, err
		}
		imputed = append(imputed, col.Name)
	}
	if len(imputed) > 0 {
		logger.Info("imputed missing values", logging.Strings("columns", imputed))
		// Filled cells can make two rows identical
		out = dedupe(out)
	}
	logger.Info("removed duplicate rows", logging.Int("duplicates", before-out.Len()), logging.Int("rows", out.Len()))

	if target, ok := out.Column(opts.Target); ok && target.Kind == dataset.Numeric && out.Len() > 0 {
		positives := 0
		for _, v := range target.Floats {
			if v == 1 {
				positives++
			}
		}
		logger.Info("label distribution",
			logging.String("target", opts.Target),
			logging.Int("positive", positives),
			logging.Int("negative", out.Len()-positives),
			logging.Float("positive_rate", float64(positives)/float64(out.Len())),
		)
	}

	return out, nil
}

// encodeBinary maps Yes/No onto 1/0, passing existing 0/1 through
func encodeBinary(col *dataset.Series) (*dataset.Series, error) {
	out := &dataset.Series{
		Name:    col.Name,
		Kind:    dataset.Numeric,
		Floats:  make([]float64, col.Len()),
		Missing: append([]bool(nil), col.Missing...),
	}
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		v, ok := binaryValues[col.Text(i)]
		if !ok {
			return nil, fmt.Errorf("column %s row %d: unexpected binary value %q", col.Name, i, col.Text(i))
		}
		out.Floats[i] = v
	}
	return out, nil
}

func dedupe(t *dataset.Table) *dataset.Table {
	seen := make(map[string]bool, t.Len())
	keep := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		key := t.RowKey(i)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}
	if len(keep) == t.Len() {
		return t
	}
	return t.Take(keep)
}

// impute fills numeric columns with the median and categorical ones with
// the mode. Binary columns take the mode too so they stay 0/1.
func impute(col *dataset.Series, binary bool) (*dataset.Series, error) {
	out := col.Clone()
	present := col.Len() - col.MissingCount()
	if present == 0 {
		return nil, fmt.Errorf("column %s has no values to impute from", col.Name)
	}

	if col.Kind == dataset.Numeric {
		m := median(col)
		if binary {
			m = floatMode(col)
		}
		for i := range out.Missing {
			if out.Missing[i] {
				out.Floats[i] = m
				out.Missing[i] = false
			}
		}
		return out, nil
	}

	m := mode(col)
	for i := range out.Missing {
		if out.Missing[i] {
			out.Strings[i] = m
			out.Missing[i] = false
		}
	}
	return out, nil
}

func median(col *dataset.Series) float64 {
	values := make([]float64, 0, col.Len())
	for i, v := range col.Floats {
		if !col.Missing[i] {
			values = append(values, v)
		}
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2
	}
	return values[mid]
}

// mode returns the most frequent value; ties go to the first seen
func mode(col *dataset.Series) string {
	counts := make(map[string]int)
	var order []string
	for i, v := range col.Strings {
		if col.Missing[i] {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

// floatMode is mode for numeric columns; ties go to the first seen
func floatMode(col *dataset.Series) float64 {
	counts := make(map[float64]int)
	var order []float64
	for i, v := range col.Floats {
		if col.Missing[i] {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}
