// Package main provides the entry point for the county wage ETL CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wage_etl",
	Short: "County cost-of-living wage ETL",
	Long:  "wage_etl scrapes county-level living wage and expense tables, normalizes them into long-format records, and bulk-loads them into PostgreSQL staging tables with per-run tracking.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
