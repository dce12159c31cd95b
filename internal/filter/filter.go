// Package filter derives row subsets of a dataset from user-chosen criteria.
package filter

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"

	"github.com/campaignlens/campaignlens/internal/dataset"
)

// SelectAll is the sentinel selection value that bypasses a membership filter.
const SelectAll = "all"

// Columns names the dataset columns the pipeline filters on.
type Columns struct {
	Age     string
	Job     string
	Marital string
}

// Spec captures one filter submission. It has no identity beyond the request
// that constructed it.
type Spec struct {
	AgeMin  int      `yaml:"age_min" json:"age_min"`
	AgeMax  int      `yaml:"age_max" json:"age_max"`
	Jobs    []string `yaml:"jobs" json:"jobs"`
	Marital []string `yaml:"marital" json:"marital"`
}

// ByRange keeps rows whose numeric column value lies within [low, high].
func ByRange(ds *dataset.Dataset, column string, low, high float64) (*dataset.Dataset, error) {
	if err := ds.RequireColumn(column); err != nil {
		return nil, err
	}
	out := ds.Frame().Filter(
		dataframe.F{Colname: column, Comparator: series.GreaterEq, Comparando: low},
	).Filter(
		dataframe.F{Colname: column, Comparator: series.LessEq, Comparando: high},
	)
	if out.Err != nil {
		return nil, eris.Wrapf(out.Err, "filter: range on %q", column)
	}
	return dataset.FromFrame(out)
}

// ByMembership keeps rows whose column value is in selected. A selection
// containing SelectAll, or an empty selection, leaves the dataset unchanged.
// The result's row index is dense, with no gaps from removed rows.
func ByMembership(ds *dataset.Dataset, column string, selected []string) (*dataset.Dataset, error) {
	if len(selected) == 0 {
		return ds, nil
	}
	for _, v := range selected {
		if v == SelectAll {
			return ds, nil
		}
	}
	if err := ds.RequireColumn(column); err != nil {
		return nil, err
	}
	out := ds.Frame().Filter(
		dataframe.F{Colname: column, Comparator: series.In, Comparando: selected},
	)
	if out.Err != nil {
		return nil, eris.Wrapf(out.Err, "filter: membership on %q", column)
	}
	return dataset.FromFrame(out)
}

// Apply runs the full pipeline: age range first, then job and marital
// membership. Filters are conjunctive; each step returns a new dataset.
func (s Spec) Apply(ds *dataset.Dataset, cols Columns) (*dataset.Dataset, error) {
	out, err := ByRange(ds, cols.Age, float64(s.AgeMin), float64(s.AgeMax))
	if err != nil {
		return nil, err
	}
	out, err = ByMembership(out, cols.Job, s.Jobs)
	if err != nil {
		return nil, err
	}
	return ByMembership(out, cols.Marital, s.Marital)
}
