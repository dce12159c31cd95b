// Package distribution summarizes and renders the outcome column's value
// distribution.
package distribution

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/campaignlens/campaignlens/internal/dataset"
)

// Share is one outcome value's slice of the distribution.
type Share struct {
	Value   string
	Count   int
	Percent float64
}

// Summarize computes normalized value counts of the named column as
// percentages. Shares are ordered by descending count, ties by first
// appearance. Percentages over a non-empty dataset sum to 100 within
// floating-point tolerance.
func Summarize(ds *dataset.Dataset, column string) ([]Share, error) {
	values, err := ds.Column(column)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, eris.Errorf("distribution: column %q has no rows", column)
	}

	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	shares := make([]Share, 0, len(order))
	total := float64(len(values))
	for _, v := range order {
		shares = append(shares, Share{
			Value:   v,
			Count:   counts[v],
			Percent: float64(counts[v]) / total * 100,
		})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Count > shares[j].Count
	})
	return shares, nil
}
