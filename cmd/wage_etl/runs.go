package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/wage-etl/internal/load"
	"github.com/jonathan/wage-etl/internal/report"
)

var runsCommand = &cobra.Command{
	Use:   "runs",
	Short: "Show recent ETL runs and staging table counts",
	RunE:  runsCmd,
}

var runsLimit int

func init() {
	runsCommand.Flags().IntVar(&runsLimit, "limit", 10, "Maximum number of runs to show")
	runsCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runsCommand)
}

func runsCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (set database_url in config, --db-url, or DATABASE_URL)")
	}

	db, err := load.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}

	counts, err := db.StagingCounts(ctx)
	if err != nil {
		return err
	}

	printer := report.NewPrinter(os.Stdout)
	printer.PrintRuns(runs)
	printer.PrintStagingCounts(counts)
	return nil
}
