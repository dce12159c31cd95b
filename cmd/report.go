package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/campaignlens/campaignlens/internal/dataset"
	"github.com/campaignlens/campaignlens/internal/distribution"
	"github.com/campaignlens/campaignlens/internal/filter"
	"github.com/campaignlens/campaignlens/internal/report"
)

var (
	reportInput  string
	reportFilter string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Filter a campaign export and write spreadsheet and charts",
	Long:  "Loads a semicolon-CSV or XLSX file, applies an optional YAML filter, then writes the filtered spreadsheet plus bar and pie charts of the outcome distribution.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}

		raw, err := os.ReadFile(reportInput)
		if err != nil {
			return eris.Wrap(err, "report: read input")
		}
		ds, err := dataset.Load(raw)
		if err != nil {
			return err
		}

		spec, err := loadFilterSpec(ds)
		if err != nil {
			return err
		}

		cols := filter.Columns{
			Age:     cfg.Data.AgeColumn,
			Job:     cfg.Data.JobColumn,
			Marital: cfg.Data.MaritalColumn,
		}
		filtered, err := spec.Apply(ds, cols)
		if err != nil {
			return err
		}
		zap.L().Info("report: filters applied",
			zap.Int("rows_in", ds.NumRows()),
			zap.Int("rows_out", filtered.NumRows()),
		)

		if err := os.MkdirAll(reportOut, 0o755); err != nil {
			return eris.Wrap(err, "report: create output dir")
		}

		xlsxBytes, err := report.ToXLSX(filtered, cfg.Export.SheetName)
		if err != nil {
			return err
		}
		xlsxPath := filepath.Join(reportOut, cfg.Export.DownloadFilename)
		if err := os.WriteFile(xlsxPath, xlsxBytes, 0o644); err != nil {
			return eris.Wrap(err, "report: write spreadsheet")
		}

		shares, err := distribution.Summarize(filtered, cfg.Data.OutcomeColumn)
		if err != nil {
			return err
		}
		renderer := distribution.NewRenderer(distribution.DefaultTheme(cfg.Chart.Width, cfg.Chart.Height))
		for name, render := range map[string]func([]distribution.Share, string) ([]byte, error){
			"bar.png": renderer.BarPNG,
			"pie.png": renderer.PiePNG,
		} {
			png, err := render(shares, "Outcome distribution")
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(reportOut, name), png, 0o644); err != nil {
				return eris.Wrap(err, "report: write chart")
			}
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{cfg.Data.OutcomeColumn, "Count", "Percent"})
		for _, share := range shares {
			table.Append([]string{
				share.Value,
				fmt.Sprintf("%d", share.Count),
				fmt.Sprintf("%.1f%%", share.Percent),
			})
		}
		table.Render()

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s and charts to %s (%d of %d rows)\n",
			cfg.Export.DownloadFilename, reportOut, filtered.NumRows(), ds.NumRows())
		return nil
	},
}

// loadFilterSpec reads the YAML filter file, defaulting to a pass-through
// spec spanning the observed age range.
func loadFilterSpec(ds *dataset.Dataset) (filter.Spec, error) {
	min, max, err := ds.NumericBounds(cfg.Data.AgeColumn)
	if err != nil {
		return filter.Spec{}, err
	}
	spec := filter.Spec{
		AgeMin:  int(min),
		AgeMax:  int(max),
		Jobs:    []string{filter.SelectAll},
		Marital: []string{filter.SelectAll},
	}
	if reportFilter == "" {
		return spec, nil
	}

	raw, err := os.ReadFile(reportFilter)
	if err != nil {
		return filter.Spec{}, eris.Wrap(err, "report: read filter file")
	}
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return filter.Spec{}, eris.Wrap(err, "report: parse filter file")
	}
	return spec, nil
}

func init() {
	reportCmd.Flags().StringVar(&reportInput, "input", "", "input CSV or XLSX file (required)")
	reportCmd.Flags().StringVar(&reportFilter, "filter", "", "YAML filter file")
	reportCmd.Flags().StringVar(&reportOut, "out", ".", "output directory")
	reportCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(reportCmd)
}
