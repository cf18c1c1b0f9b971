// Package dataset holds the in-memory tabular representation shared by
// every pipeline stage.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the logical type of a column
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Series is a single named column. Exactly one of Floats or Strings is
// populated, depending on Kind.
type Series struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Missing []bool
}

// NewNumeric builds a numeric column with no missing cells
func NewNumeric(name string, values []float64) *Series {
	return &Series{
		Name:    name,
		Kind:    Numeric,
		Floats:  append([]float64(nil), values...),
		Missing: make([]bool, len(values)),
	}
}

// NewCategorical builds a categorical column with no missing cells
func NewCategorical(name string, values []string) *Series {
	return &Series{
		Name:    name,
		Kind:    Categorical,
		Strings: append([]string(nil), values...),
		Missing: make([]bool, len(values)),
	}
}

// Len returns the number of cells
func (s *Series) Len() int {
	return len(s.Missing)
}

// IsMissing reports whether cell i is missing
func (s *Series) IsMissing(i int) bool {
	return s.Missing[i]
}

// Float returns cell i of a numeric column
func (s *Series) Float(i int) float64 {
	return s.Floats[i]
}

// Text returns cell i rendered as text, or "" when missing
func (s *Series) Text(i int) string {
	if s.Missing[i] {
		return ""
	}
	if s.Kind == Numeric {
		return strconv.FormatFloat(s.Floats[i], 'g', -1, 64)
	}
	return s.Strings[i]
}

// MissingCount returns how many cells are missing
func (s *Series) MissingCount() int {
	n := 0
	for _, m := range s.Missing {
		if m {
			n++
		}
	}
	return n
}

// Clone returns a deep copy
func (s *Series) Clone() *Series {
	c := &Series{
		Name:    s.Name,
		Kind:    s.Kind,
		Missing: append([]bool(nil), s.Missing...),
	}
	if s.Floats != nil {
		c.Floats = append([]float64(nil), s.Floats...)
	}
	if s.Strings != nil {
		c.Strings = append([]string(nil), s.Strings...)
	}
	return c
}

// Take returns a new series holding the cells at idx, in that order
func (s *Series) Take(idx []int) *Series {
	c := &Series{Name: s.Name, Kind: s.Kind, Missing: make([]bool, len(idx))}
	if s.Kind == Numeric {
		c.Floats = make([]float64, len(idx))
	} else {
		c.Strings = make([]string, len(idx))
	}
	for j, i := range idx {
		c.Missing[j] = s.Missing[i]
		if s.Kind == Numeric {
			c.Floats[j] = s.Floats[i]
		} else {
			c.Strings[j] = s.Strings[i]
		}
	}
	return c
}

// Equal compares kind, values and missing masks
func (s *Series) Equal(o *Series) bool {
	if s.Name != o.Name || s.Kind != o.Kind || s.Len() != o.Len() {
		return false
	}
	for i := range s.Missing {
		if s.Missing[i] != o.Missing[i] {
			return false
		}
		if s.Missing[i] {
			continue
		}
		if s.Kind == Numeric {
			a, b := s.Floats[i], o.Floats[i]
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				return false
			}
		} else if s.Strings[i] != o.Strings[i] {
			return false
		}
	}
	return true
}

// Table is an ordered set of equally long columns. Operations that change
// shape or content return a new table and leave the receiver untouched.
type Table struct {
	cols  []*Series
	index map[string]int
}

// New builds a table from columns, which must share a length and have unique names
func New(cols ...*Series) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if len(t.cols) > 0 && c.Len() != t.cols[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), t.cols[0].Len())
		}
		t.index[c.Name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New for static fixtures; it panics on error
func MustNew(cols ...*Series) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows
func (t *Table) Len() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.cols)
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The series is shared with the table and
// must be treated as read-only.
func (t *Table) Column(name string) (*Series, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Series returns all columns in order, read-only
func (t *Table) Series() []*Series {
	return append([]*Series(nil), t.cols...)
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	cols := make([]*Series, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Clone()
	}
	return MustNew(cols...)
}

// WithColumn returns a copy of the table with s appended, or replacing the
// column of the same name in place
func (t *Table) WithColumn(s *Series) (*Table, error) {
	if len(t.cols) > 0 && s.Len() != t.Len() {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", s.Name, s.Len(), t.Len())
	}
	cols := append([]*Series(nil), t.cols...)
	if i, ok := t.index[s.Name]; ok {
		cols[i] = s
	} else {
		cols = append(cols, s)
	}
	return New(cols...)
}

// Drop returns a copy without the named columns; absent names are ignored
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var cols []*Series
	for _, c := range t.cols {
		if !drop[c.Name] {
			cols = append(cols, c)
		}
	}
	return MustNew(cols...)
}

// Select returns the named columns in the given order
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Series, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("column %q not found", n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Take returns a new table with the rows at idx, in that order
func (t *Table) Take(idx []int) *Table {
	cols := make([]*Series, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Take(idx)
	}
	return MustNew(cols...)
}

// Equal reports whether both tables have the same columns, kinds and cells
func (t *Table) Equal(o *Table) bool {
	if t.Width() != o.Width() {
		return false
	}
	for i := range t.cols {
		if !t.cols[i].Equal(o.cols[i]) {
			return false
		}
	}
	return true
}

// RowKey renders row i so that two rows share a key iff all cells are equal
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for _, c := range t.cols {
		if c.Missing[i] {
			b.WriteString("\x00")
		} else {
			b.WriteString(strconv.Quote(c.Text(i)))
		}
		b.WriteByte(',')
	}
	return b.String()
}

// Floats returns a numeric column's values, failing on a missing cell
func (t *Table) Floats(name string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	if c.Kind != Numeric {
		return nil, fmt.Errorf("column %q is %s, expected numeric", name, c.Kind)
	}
	for i, m := range c.Missing {
		if m {
			return nil, fmt.Errorf("column %q has a missing value at row %d", name, i)
		}
	}
	return append([]float64(nil), c.Floats...), nil
}
