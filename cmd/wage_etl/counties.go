package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/wage-etl/internal/geo"
	"github.com/jonathan/wage-etl/internal/report"
)

var countiesCommand = &cobra.Command{
	Use:   "counties [state...]",
	Short: "List the counties that would be processed",
	Long: `Resolves state abbreviations against the Census API and prints the county
FIPS codes and names. With no arguments, resolves the configured target
states.`,
	RunE: countiesCmd,
}

func init() {
	rootCmd.AddCommand(countiesCommand)
}

func countiesCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}

	targets := cfg.TargetStates
	if len(args) > 0 {
		targets = args
	}

	censusClient, censusHTTP, err := newCensusClient(cfg)
	if err != nil {
		return err
	}
	defer censusHTTP.Close()

	resolver := geo.NewResolver(censusClient)
	counties, err := resolver.Resolve(ctx, targets)
	if err != nil {
		return err
	}

	report.NewPrinter(os.Stdout).PrintCounties(counties)
	return nil
}
