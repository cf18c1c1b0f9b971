package cleaning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
)

const rawCSV = `Age,Attrition,OverTime,Department,MonthlyIncome,EmployeeCount,StandardHours,Over18,EmployeeNumber
41,Yes,Yes,Sales,5000,1,80,Y,1
49,No,No,,NA,1,80,Y,2
37,Yes,Yes,Sales,3000,1,80,Y,3
33,No,No,Research & Development,4000,1,80,Y,4
33,No,No,Research & Development,4000,1,80,Y,4
27,No,Yes,Research & Development,6000,1,80,Y,5
`

func parse(t *testing.T, body string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	return tbl
}

func TestClean(t *testing.T) {
	raw := parse(t, rawCSV)
	cleaned, err := Clean(raw, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"Age", "Attrition", "OverTime", "Department", "MonthlyIncome"}, cleaned.Columns())
	// The exact duplicate of EmployeeNumber 4 collapses once the id is gone
	assert.Equal(t, 5, cleaned.Len())

	attrition, _ := cleaned.Column("Attrition")
	assert.Equal(t, dataset.Numeric, attrition.Kind)
	assert.Equal(t, []float64{1, 0, 1, 0, 0}, attrition.Floats)

	// Median of {5000, 3000, 4000, 6000} is the mean of the middle pair
	income, _ := cleaned.Column("MonthlyIncome")
	assert.Equal(t, 4500.0, income.Float(1))
	assert.Zero(t, income.MissingCount())

	// Sales and Research & Development tie on two rows; the first seen wins
	dept, _ := cleaned.Column("Department")
	assert.Equal(t, "Sales", dept.Text(1))

	// Input untouched
	assert.Equal(t, 6, raw.Len())
	assert.True(t, raw.Has("EmployeeNumber"))
}

func TestCleanIdempotent(t *testing.T) {
	once, err := Clean(parse(t, rawCSV), DefaultOptions())
	require.NoError(t, err)
	twice, err := Clean(once, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, once.Equal(twice))

	synthetic := dataset.SyntheticHR(300, 3)
	a, err := Clean(synthetic, DefaultOptions())
	require.NoError(t, err)
	b, err := Clean(a, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestCleanModeTieBreak(t *testing.T) {
	tbl := parse(t, "c,n\nb,1\na,2\nb,3\na,4\n,5\n")
	cleaned, err := Clean(tbl, Options{})
	require.NoError(t, err)

	c, _ := cleaned.Column("c")
	assert.Equal(t, "b", c.Text(4))
}

func TestCleanOddMedian(t *testing.T) {
	tbl := parse(t, "n\n3\n1\nNA\n10\n")
	cleaned, err := Clean(tbl, Options{})
	require.NoError(t, err)

	n, _ := cleaned.Column("n")
	assert.Equal(t, []float64{3, 1, 3, 10}, n.Floats)
}

func TestCleanErrors(t *testing.T) {
	t.Run("unexpected binary value", func(t *testing.T) {
		tbl := parse(t, "Attrition\nYes\nMaybe\n")
		_, err := Clean(tbl, DefaultOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Attrition")
		assert.Contains(t, err.Error(), "row 1")
		assert.Contains(t, err.Error(), "Maybe")
	})

	t.Run("numeric binary out of domain", func(t *testing.T) {
		tbl := parse(t, "OverTime\n1\n2\n")
		_, err := Clean(tbl, DefaultOptions())
		assert.Error(t, err)
	})

	t.Run("column with no values", func(t *testing.T) {
		tbl := parse(t, "a,b\n1,\n2,NA\n")
		_, err := Clean(tbl, Options{})
		assert.ErrorContains(t, err, "no values")
	})
}

func TestCleanMissingBinaryTakesMode(t *testing.T) {
	// The median of {1, 0, 0, 1} would be 0.5
	tbl := parse(t, "OverTime,x\nYes,1\nNo,2\n,3\nNo,4\nYes,5\n")
	cleaned, err := Clean(tbl, DefaultOptions())
	require.NoError(t, err)

	ot, _ := cleaned.Column("OverTime")
	assert.Equal(t, []float64{1, 0, 1, 0, 1}, ot.Floats)
	for _, v := range ot.Floats {
		assert.Contains(t, []float64{0, 1}, v)
	}
}

func TestCleanDedupesAfterImputation(t *testing.T) {
	once, err := Clean(parse(t, "a,b\n1,NA\n1,2\n1,2\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, once.Len())

	twice, err := Clean(once, Options{})
	require.NoError(t, err)
	assert.True(t, once.Equal(twice))
}
