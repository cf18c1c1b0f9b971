package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
)

func baseTable() *dataset.Table {
	return dataset.MustNew(
		dataset.NewNumeric("YearsAtCompany", []float64{4, 10}),
		dataset.NewNumeric("YearsWithCurrManager", []float64{1, 4}),
		dataset.NewNumeric("PercentSalaryHike", []float64{11, 15}),
		dataset.NewNumeric("JobSatisfaction", []float64{2, 4}),
		dataset.NewNumeric("EnvironmentSatisfaction", []float64{3, 4}),
		dataset.NewNumeric("RelationshipSatisfaction", []float64{1, 4}),
		dataset.NewNumeric("WorkLifeBalance", []float64{2, 3}),
		dataset.NewNumeric("JobInvolvement", []float64{3, 1}),
		dataset.NewNumeric("JobLevel", []float64{2, 3}),
		dataset.NewNumeric("OverTime", []float64{1, 0}),
		dataset.NewNumeric("TotalWorkingYears", []float64{7, 20}),
		dataset.NewNumeric("DistanceFromHome", []float64{10, 2}),
		dataset.NewCategorical("Department", []string{"Sales", "Research & Development"}),
	)
}

func column(t *testing.T, tbl *dataset.Table, name string) []float64 {
	t.Helper()
	values, err := tbl.Floats(name)
	require.NoError(t, err)
	return values
}

func TestEngineerFormulas(t *testing.T) {
	in := baseTable()
	out, err := Engineer(in)
	require.NoError(t, err)

	assert.Equal(t, in.Width()+8, out.Width())
	assert.Equal(t, Names, out.Columns()[in.Width():])

	assert.InDeltaSlice(t, []float64{2, 2}, column(t, out, YearsPerPromotion), 1e-12)
	assert.InDeltaSlice(t, []float64{-2, 2}, column(t, out, SalaryGrowthGap), 1e-12)
	assert.InDeltaSlice(t, []float64{2, 3.75}, column(t, out, SatisfactionComposite), 1e-12)
	assert.InDeltaSlice(t, []float64{0.4*3 + 0.3*2 + 0.3*2, 0.4*1 + 0.3*4 + 0.3*3}, column(t, out, EngagementScore), 1e-12)
	assert.InDeltaSlice(t, []float64{2.0 / 5, 3.0 / 11}, column(t, out, CareerVelocity), 1e-12)
	assert.InDeltaSlice(t, []float64{7, 0}, column(t, out, OvertimeSeniorityRisk), 1e-12)
	assert.InDeltaSlice(t, []float64{4.0 / 8, 10.0 / 21}, column(t, out, LoyaltyScore), 1e-12)
	assert.InDeltaSlice(t, []float64{30, 4}, column(t, out, DistanceWorklifeRisk), 1e-12)

	// Input untouched
	assert.False(t, in.Has(LoyaltyScore))
}

func TestEngineerOverwritesInPlace(t *testing.T) {
	in, err := baseTable().WithColumn(dataset.NewNumeric(LoyaltyScore, []float64{-1, -1}))
	require.NoError(t, err)

	out, err := Engineer(in)
	require.NoError(t, err)

	assert.Equal(t, in.Width()+7, out.Width())
	assert.Equal(t, LoyaltyScore, out.Columns()[in.Width()-1])
	assert.InDeltaSlice(t, []float64{0.5, 10.0 / 21}, column(t, out, LoyaltyScore), 1e-12)
}

func TestSalaryGrowthGapSingleRow(t *testing.T) {
	one := baseTable().Take([]int{1})
	out, err := Engineer(one)
	require.NoError(t, err)

	assert.Equal(t, []float64{0}, column(t, out, SalaryGrowthGap))
}

func TestEngagementDefaults(t *testing.T) {
	in := baseTable().Drop("JobInvolvement")
	out, err := Engineer(in)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.4*2 + 0.3*2 + 0.3*2, 0.4*2 + 0.3*4 + 0.3*3}, column(t, out, EngagementScore), 1e-12)
}

func TestSatisfactionSkipsAbsentColumns(t *testing.T) {
	in := baseTable().Drop("EnvironmentSatisfaction", "RelationshipSatisfaction")
	out, err := Engineer(in)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2, 3.5}, column(t, out, SatisfactionComposite), 1e-12)
}

func TestEngineerErrors(t *testing.T) {
	_, err := Engineer(baseTable().Drop("TotalWorkingYears"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TotalWorkingYears")

	noSatisfaction := baseTable().Drop("JobSatisfaction", "EnvironmentSatisfaction", "RelationshipSatisfaction")
	// WorkLifeBalance still feeds the composite
	_, err = Engineer(noSatisfaction)
	require.NoError(t, err)

	_, err = Engineer(noSatisfaction.Drop("WorkLifeBalance"))
	assert.Error(t, err)
}

func TestEngineerSynthetic(t *testing.T) {
	raw := dataset.SyntheticHR(50, 1)
	// OverTime is still Yes/No before cleaning
	_, err := Engineer(raw)
	assert.ErrorContains(t, err, "expected numeric")
}
