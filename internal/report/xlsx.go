// Package report serializes datasets to downloadable spreadsheets.
package report

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/campaignlens/campaignlens/internal/dataset"
)

// ToXLSX serializes the dataset to a single-sheet XLSX workbook. The header
// row is included; no row-index column is written.
func ToXLSX(ds *dataset.Dataset, sheetName string) ([]byte, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrapf(err, "report: add sheet %q", sheetName)
	}

	for _, record := range ds.Records() {
		row := sheet.AddRow()
		for _, value := range record {
			row.AddCell().SetString(value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "report: write workbook")
	}
	return buf.Bytes(), nil
}
