package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/wage-etl/internal/cache"
	"github.com/jonathan/wage-etl/internal/census"
	"github.com/jonathan/wage-etl/internal/config"
	"github.com/jonathan/wage-etl/internal/geo"
	"github.com/jonathan/wage-etl/internal/httpclient"
	"github.com/jonathan/wage-etl/internal/load"
	"github.com/jonathan/wage-etl/internal/pipeline"
	"github.com/jonathan/wage-etl/internal/report"
	"github.com/jonathan/wage-etl/internal/scraper"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full ETL pipeline for the configured states",
	Long: `Runs the whole pipeline state by state: enumerate counties from the Census
API, scrape each county's wage and expense tables, normalize and validate the
records, and bulk-load them into PostgreSQL staging tables.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runETLCmd,
}

var (
	runConfigPath  string
	runStates      []string
	runDatabaseURL string
	runCacheDir    string
	runLogLevel    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().StringVar(&runLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	runCommand.Flags().StringSliceVarP(&runStates, "states", "s", nil, `State abbreviations to process, or "*" for all`)
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	runCommand.Flags().StringVar(&runCacheDir, "cache-dir", "", "HTTP response cache directory")

	rootCmd.AddCommand(runCommand)
}

// loadRunConfig merges the config file with explicitly set CLI flags.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(runConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("states") {
		cfg.TargetStates = runStates
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir = runCacheDir
	}
	if runLogLevel != "" {
		cfg.LogLevel = runLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging applies the configured logrus level.
func setupLogging(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)
	return nil
}

// newCensusClient builds the Census API client with its own cache namespace.
func newCensusClient(cfg *config.Config) (*census.Client, *httpclient.Client, error) {
	censusCache, err := cache.New(filepath.Join(cfg.CacheDir, "census"), cfg.CensusCacheTTLDays)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create census cache: %w", err)
	}

	http := httpclient.New(httpclient.Config{
		BaseURL:    cfg.CensusBaseURL,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.MaxRetries,
	}, censusCache)

	return census.New(http), http, nil
}

// newWageScraper builds the wage site scraper with its own cache namespace.
func newWageScraper(cfg *config.Config) (*scraper.WageScraper, *httpclient.Client, error) {
	scraperCache, err := cache.New(filepath.Join(cfg.CacheDir, "scraper"), cfg.ScraperCacheTTLDays)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scraper cache: %w", err)
	}

	http := httpclient.New(httpclient.Config{
		BaseURL:    cfg.ScraperBaseURL,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.MaxRetries,
	}, scraperCache)

	return scraper.New(http), http, nil
}

func runETLCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
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

	censusClient, censusHTTP, err := newCensusClient(cfg)
	if err != nil {
		return err
	}
	defer censusHTTP.Close()

	wageScraper, scraperHTTP, err := newWageScraper(cfg)
	if err != nil {
		return err
	}
	defer scraperHTTP.Close()

	states, err := geo.ResolveStates(cfg.TargetStates)
	if err != nil {
		return err
	}

	p := pipeline.New(db, pipeline.Options{
		MinDelay:       time.Duration(cfg.MinDelaySeconds * float64(time.Second)),
		MaxDelay:       time.Duration(cfg.MaxDelaySeconds * float64(time.Second)),
		MinSuccessRate: cfg.MinSuccessRate,
	})

	printer := report.NewPrinter(os.Stdout)

	// One state failing does not stop the rest.
	var lastErr error
	for _, stateFIPS := range states {
		countyCodes, err := censusClient.GetCountyCodes(ctx, stateFIPS)
		if err != nil {
			log.WithField("state", stateFIPS).Errorf("Failed to enumerate counties: %v", err)
			lastErr = err
			continue
		}

		results := scraper.ScrapeMany(ctx, wageScraper, stateFIPS, countyCodes)
		summary, err := p.ProcessState(ctx, stateFIPS, results)
		if err != nil {
			log.WithField("state", stateFIPS).Errorf("State run failed: %v", err)
			lastErr = err
			continue
		}

		printer.PrintRunSummary(geo.AbbrForFIPS(stateFIPS), summary)
	}

	if lastErr != nil {
		return fmt.Errorf("one or more states failed: %w", lastErr)
	}
	return nil
}
