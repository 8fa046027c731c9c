package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/wage-etl/internal/geo"
	"github.com/jonathan/wage-etl/internal/report"
)

var statesCommand = &cobra.Command{
	Use:   "states",
	Short: "List US states known to the Census API",
	RunE:  statesCmd,
}

func init() {
	rootCmd.AddCommand(statesCommand)
}

func statesCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}

	censusClient, censusHTTP, err := newCensusClient(cfg)
	if err != nil {
		return err
	}
	defer censusHTTP.Close()

	states, err := censusClient.GetStates(ctx)
	if err != nil {
		return err
	}
	for i := range states {
		states[i].StateAbbr = geo.AbbrForFIPS(states[i].StateFIPS)
	}

	report.NewPrinter(os.Stdout).PrintStates(states)
	return nil
}
