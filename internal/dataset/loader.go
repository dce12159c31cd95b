package dataset

import (
	"bytes"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// csvDelimiter matches the semicolon separator the source files use.
const csvDelimiter = ';'

// Load parses raw upload bytes, first as semicolon-delimited CSV and on
// failure as an XLSX workbook. Selection is by parse attempt, never by file
// extension. When neither parse yields a usable table the result is
// ErrUnparseable.
func Load(raw []byte) (*Dataset, error) {
	ds, csvErr := loadCSV(raw)
	if csvErr == nil {
		return ds, nil
	}

	ds, xlsxErr := loadXLSX(raw)
	if xlsxErr == nil {
		zap.L().Debug("dataset: csv parse failed, loaded as xlsx", zap.Error(csvErr))
		return ds, nil
	}

	zap.L().Warn("dataset: both parsers rejected upload",
		zap.Error(csvErr),
		zap.Error(xlsxErr),
	)
	return nil, eris.Wrap(ErrUnparseable, "dataset: load")
}

func loadCSV(raw []byte) (*Dataset, error) {
	df := dataframe.ReadCSV(bytes.NewReader(raw),
		dataframe.WithDelimiter(csvDelimiter),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, eris.Wrap(df.Err, "dataset: read csv")
	}
	if df.Nrow() == 0 {
		return nil, eris.New("dataset: csv has no data rows")
	}
	return &Dataset{df: df}, nil
}

func loadXLSX(raw []byte) (*Dataset, error) {
	f, err := xlsx.OpenBinary(raw)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("dataset: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	width := 0
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if len(cells) > width {
			width = len(cells)
		}
		records = append(records, cells)
	}

	// Short rows are padded so every record matches the header width.
	for i, row := range records {
		for len(row) < width {
			row = append(row, "")
		}
		records[i] = row
	}

	return FromRecords(records)
}
