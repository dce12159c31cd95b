package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaignlens/campaignlens/internal/dataset"
)

var testCols = Columns{Age: "age", Job: "job", Marital: "marital"}

func loadTestDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords([][]string{
		{"age", "job", "marital", "y"},
		{"25", "admin", "single", "yes"},
		{"40", "technician", "married", "no"},
		{"60", "retired", "married", "no"},
	})
	require.NoError(t, err)
	return ds
}

func TestByRange_ObservedBoundsAreIdentity(t *testing.T) {
	ds := loadTestDataset(t)

	min, max, err := ds.NumericBounds("age")
	require.NoError(t, err)

	out, err := ByRange(ds, "age", min, max)
	require.NoError(t, err)
	assert.Equal(t, ds.NumRows(), out.NumRows())
}

func TestByRange_InclusiveBounds(t *testing.T) {
	ds := loadTestDataset(t)

	out, err := ByRange(ds, "age", 25, 40)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())

	jobs, err := out.Column("job")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "technician"}, jobs)
}

func TestByRange_MissingColumn(t *testing.T) {
	ds := loadTestDataset(t)

	_, err := ByRange(ds, "salary", 0, 100)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestByMembership_KeepsSelectedOnly(t *testing.T) {
	ds := loadTestDataset(t)

	out, err := ByMembership(ds, "job", []string{"admin", "retired"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())

	jobs, err := out.Column("job")
	require.NoError(t, err)
	for _, j := range jobs {
		assert.Contains(t, []string{"admin", "retired"}, j)
	}
	assert.LessOrEqual(t, out.NumRows(), ds.NumRows())
}

func TestByMembership_AllSentinelIsIdentity(t *testing.T) {
	ds := loadTestDataset(t)

	out, err := ByMembership(ds, "job", []string{SelectAll})
	require.NoError(t, err)
	assert.Equal(t, ds.NumRows(), out.NumRows())

	// Sentinel mixed with concrete values still bypasses.
	out, err = ByMembership(ds, "job", []string{"admin", SelectAll})
	require.NoError(t, err)
	assert.Equal(t, ds.NumRows(), out.NumRows())
}

func TestByMembership_EmptySelectionIsIdentity(t *testing.T) {
	ds := loadTestDataset(t)

	out, err := ByMembership(ds, "job", nil)
	require.NoError(t, err)
	assert.Equal(t, ds.NumRows(), out.NumRows())
}

func TestByMembership_DenseReindex(t *testing.T) {
	ds := loadTestDataset(t)

	// Selecting "married" drops the first row; the result must start at row 0.
	out, err := ByMembership(ds, "marital", []string{"married"})
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows())

	records := out.Records()
	require.Len(t, records, 3) // header + 2 rows
	assert.Equal(t, "40", records[1][0])
	assert.Equal(t, "60", records[2][0])
}

func TestApply_CompositionOrder(t *testing.T) {
	ds := loadTestDataset(t)

	spec := Spec{
		AgeMin:  30,
		AgeMax:  60,
		Jobs:    []string{SelectAll},
		Marital: []string{"married"},
	}
	out, err := spec.Apply(ds, testCols)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
}

func TestApply_ScenarioFromAges(t *testing.T) {
	// ages [25,40,60], range [30,60] keeps exactly two rows.
	ds := loadTestDataset(t)

	spec := Spec{
		AgeMin:  30,
		AgeMax:  60,
		Jobs:    []string{SelectAll},
		Marital: []string{SelectAll},
	}
	out, err := spec.Apply(ds, testCols)
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows())

	outcomes, err := out.Column("y")
	require.NoError(t, err)
	assert.Equal(t, []string{"no", "no"}, outcomes)
}

func TestApply_SourceUnchanged(t *testing.T) {
	ds := loadTestDataset(t)

	spec := Spec{AgeMin: 30, AgeMax: 60}
	_, err := spec.Apply(ds, testCols)
	require.NoError(t, err)

	// The input dataset is untouched by the pipeline.
	assert.Equal(t, 3, ds.NumRows())
}
