package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/campaignlens/campaignlens/internal/dataset"
)

var (
	inspectInput string
	inspectRows  int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the schema and a preview of a campaign export",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("inspect"); err != nil {
			return err
		}

		raw, err := os.ReadFile(inspectInput)
		if err != nil {
			return eris.Wrap(err, "inspect: read input")
		}
		ds, err := dataset.Load(raw)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d rows, %d columns\n\n", inspectInput, ds.NumRows(), ds.NumCols())

		schema := tablewriter.NewWriter(out)
		schema.SetHeader([]string{"Column", "Distinct", "Sample"})
		for _, name := range ds.Columns() {
			values, err := ds.Distinct(name)
			if err != nil {
				return err
			}
			sample := ""
			if len(values) > 0 {
				sample = values[0]
			}
			schema.Append([]string{name, strconv.Itoa(len(values)), sample})
		}
		schema.Render()

		fmt.Fprintln(out)
		records := ds.Head(inspectRows)
		preview := tablewriter.NewWriter(out)
		preview.SetHeader(records[0])
		for _, row := range records[1:] {
			preview.Append(row)
		}
		preview.Render()

		if !ds.HasColumn(cfg.Data.OutcomeColumn) {
			fmt.Fprintf(out, "\nWARNING: outcome column %q is missing; the dashboard will reject this file\n",
				cfg.Data.OutcomeColumn)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectInput, "input", "", "input CSV or XLSX file (required)")
	inspectCmd.Flags().IntVar(&inspectRows, "rows", 10, "preview row count")
	inspectCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(inspectCmd)
}
