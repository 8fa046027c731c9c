package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/wage-etl/internal/cache"
)

var cacheCommand = &cobra.Command{
	Use:   "cache",
	Short: "Manage the HTTP response cache",
}

var cachePurgeCommand = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	RunE:  func(cmd *cobra.Command, _ []string) error { return cacheClearCmd(cmd, false) },
}

var cacheClearCommand = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cache entries",
	RunE:  func(cmd *cobra.Command, _ []string) error { return cacheClearCmd(cmd, true) },
}

func init() {
	cacheCommand.AddCommand(cachePurgeCommand)
	cacheCommand.AddCommand(cacheClearCommand)
	rootCmd.AddCommand(cacheCommand)
}

func cacheClearCmd(cmd *cobra.Command, all bool) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	namespaces := map[string]int{
		"census":  cfg.CensusCacheTTLDays,
		"scraper": cfg.ScraperCacheTTLDays,
	}

	total := 0
	for namespace, ttlDays := range namespaces {
		c, err := cache.New(filepath.Join(cfg.CacheDir, namespace), ttlDays)
		if err != nil {
			return fmt.Errorf("failed to open %s cache: %w", namespace, err)
		}

		var removed int
		if all {
			removed = c.ClearAll()
		} else {
			removed = c.ClearExpired()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d entries\n", namespace, removed)
		total += removed
	}

	fmt.Fprintf(cmd.OutOrStdout(), "total: %d\n", total)
	return nil
}
