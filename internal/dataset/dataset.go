// Package dataset loads and holds tabular campaign data in memory.
package dataset

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
)

var (
	// ErrUnparseable signals the uploaded bytes are neither semicolon CSV nor XLSX.
	ErrUnparseable = eris.New("dataset: unparseable file")
	// ErrMissingColumn signals a required column is absent.
	ErrMissingColumn = eris.New("dataset: required column missing")
)

// Dataset is an immutable table of rows with named columns. All derivations
// (filtering, export) produce new values and leave the receiver untouched.
type Dataset struct {
	df dataframe.DataFrame
}

// FromFrame wraps an already-parsed dataframe.
func FromFrame(df dataframe.DataFrame) (*Dataset, error) {
	if df.Err != nil {
		return nil, eris.Wrap(df.Err, "dataset: invalid frame")
	}
	return &Dataset{df: df}, nil
}

// FromRecords builds a Dataset from rows where the first row is the header.
func FromRecords(records [][]string) (*Dataset, error) {
	if len(records) < 2 {
		return nil, eris.New("dataset: need a header row and at least one data row")
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
	)
	return FromFrame(df)
}

// Frame returns a copy of the underlying dataframe.
func (d *Dataset) Frame() dataframe.DataFrame {
	return d.df.Copy()
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	return d.df.Names()
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.df.Names() {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumn returns ErrMissingColumn when the named column is absent.
// The guard for the outcome column before any downstream processing.
func (d *Dataset) RequireColumn(name string) error {
	if !d.HasColumn(name) {
		return eris.Wrapf(ErrMissingColumn, "dataset: column %q", name)
	}
	return nil
}

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int {
	return d.df.Nrow()
}

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int {
	return d.df.Ncol()
}

// Records returns the table as string rows, header first.
func (d *Dataset) Records() [][]string {
	return d.df.Records()
}

// Head returns up to n data rows preceded by the header row.
func (d *Dataset) Head(n int) [][]string {
	records := d.df.Records()
	if len(records) > n+1 {
		records = records[:n+1]
	}
	return records
}

// Column returns the named column's values as strings.
func (d *Dataset) Column(name string) ([]string, error) {
	if err := d.RequireColumn(name); err != nil {
		return nil, err
	}
	return d.df.Col(name).Records(), nil
}

// NumericBounds returns the observed minimum and maximum of a numeric column.
func (d *Dataset) NumericBounds(name string) (float64, float64, error) {
	if err := d.RequireColumn(name); err != nil {
		return 0, 0, err
	}
	col := d.df.Col(name)
	switch col.Type() {
	case series.Int, series.Float:
	default:
		return 0, 0, eris.Errorf("dataset: column %q is not numeric", name)
	}
	return col.Min(), col.Max(), nil
}

// Distinct returns a column's distinct values in order of first appearance.
func (d *Dataset) Distinct(name string) ([]string, error) {
	values, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
