package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/campaignlens/campaignlens/internal/dataset"
)

func exportDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords([][]string{
		{"age", "job", "marital", "y"},
		{"25", "admin", "single", "yes"},
		{"40", "technician", "married", "no"},
	})
	require.NoError(t, err)
	return ds
}

func TestToXLSX_SheetAndHeader(t *testing.T) {
	ds := exportDataset(t)

	raw, err := ToXLSX(ds, "Sheet1")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	f, err := xlsx.OpenBinary(raw)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Equal(t, "Sheet1", f.Sheets[0].Name)

	rows := f.Sheets[0].Rows
	require.Len(t, rows, 3) // header + 2 data rows
	assert.Equal(t, "age", rows[0].Cells[0].String())
	assert.Equal(t, "y", rows[0].Cells[3].String())
	// No row-index column: first data cell is the age value itself.
	assert.Equal(t, "25", rows[1].Cells[0].String())
}

func TestToXLSX_RoundTripThroughLoader(t *testing.T) {
	ds := exportDataset(t)

	raw, err := ToXLSX(ds, "Sheet1")
	require.NoError(t, err)

	back, err := dataset.Load(raw)
	require.NoError(t, err)
	assert.Equal(t, ds.NumRows(), back.NumRows())
	assert.Equal(t, ds.Columns(), back.Columns())
}

func TestToXLSX_Deterministic(t *testing.T) {
	ds := exportDataset(t)

	a, err := ToXLSX(ds, "Sheet1")
	require.NoError(t, err)
	b, err := ToXLSX(ds, "Sheet1")
	require.NoError(t, err)

	// Workbook metadata aside, identical tables produce identical sheets.
	fa, err := xlsx.OpenBinary(a)
	require.NoError(t, err)
	fb, err := xlsx.OpenBinary(b)
	require.NoError(t, err)
	require.Len(t, fa.Sheets[0].Rows, len(fb.Sheets[0].Rows))
	for i, row := range fa.Sheets[0].Rows {
		for j, cell := range row.Cells {
			assert.Equal(t, fb.Sheets[0].Rows[i].Cells[j].String(), cell.String())
		}
	}
}
