package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campaignlens/campaignlens/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "campaignlens",
	Short: "Bank telemarketing campaign analysis dashboard",
	Long:  "Loads semicolon-CSV or XLSX campaign exports, filters by age, job and marital status, and reports the outcome distribution as tables, spreadsheets and charts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
