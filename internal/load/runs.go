package load

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// Run statuses. A run starts RUNNING and transitions exactly once to a
// terminal status.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"
	StatusFailed  = "FAILED"
)

// Run is one tracked pipeline execution for a state.
type Run struct {
	RunID             int
	StartTime         time.Time
	EndTime           *time.Time
	Status            string
	StateFIPS         string
	ScrapeDate        time.Time
	CountiesProcessed int
	WagesLoaded       int
	WagesRejected     int
	ExpensesLoaded    int
	ExpensesRejected  int
	ErrorMessage      *string
}

// RunCounts carries the per-table totals recorded when a run ends.
type RunCounts struct {
	Counties         int
	WagesLoaded      int
	WagesRejected    int
	ExpensesLoaded   int
	ExpensesRejected int
}

// StartRun inserts a RUNNING row for a state and returns its run ID.
func (db *DB) StartRun(ctx context.Context, stateFIPS string) (int, error) {
	var runID int
	err := db.pool.QueryRow(ctx,
		`INSERT INTO etl_runs (run_start_timestamp, run_status, state_fips, scrape_date)
		 VALUES (NOW(), $1, $2, CURRENT_DATE)
		 RETURNING run_id`,
		StatusRunning, stateFIPS,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	log.WithFields(log.Fields{"run_id": runID, "state": stateFIPS}).Info("Started ETL run")
	return runID, nil
}

// EndRun records the terminal status and final counts for a run. An empty
// errMsg is stored as NULL.
func (db *DB) EndRun(ctx context.Context, runID int, status string, counts RunCounts, errMsg string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE etl_runs SET
			run_end_timestamp = NOW(),
			run_status = $1,
			counties_processed = $2,
			wages_loaded = $3,
			wages_rejected = $4,
			expenses_loaded = $5,
			expenses_rejected = $6,
			error_message = NULLIF($7, '')
		 WHERE run_id = $8`,
		status, counts.Counties, counts.WagesLoaded, counts.WagesRejected,
		counts.ExpensesLoaded, counts.ExpensesRejected, errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to end run %d: %w", runID, err)
	}

	log.WithFields(log.Fields{"run_id": runID, "status": status}).Info("Ended ETL run")
	return nil
}

// GetLatestRun returns the most recent run, optionally filtered by state.
// Returns nil when no run exists.
func (db *DB) GetLatestRun(ctx context.Context, stateFIPS string) (*Run, error) {
	query := `SELECT run_id, run_start_timestamp, run_end_timestamp, run_status, state_fips,
			scrape_date, counties_processed, wages_loaded, wages_rejected,
			expenses_loaded, expenses_rejected, error_message
		FROM etl_runs`
	args := []any{}
	if stateFIPS != "" {
		query += ` WHERE state_fips = $1`
		args = append(args, stateFIPS)
	}
	query += ` ORDER BY run_start_timestamp DESC LIMIT 1`

	var run Run
	err := db.pool.QueryRow(ctx, query, args...).Scan(
		&run.RunID, &run.StartTime, &run.EndTime, &run.Status, &run.StateFIPS,
		&run.ScrapeDate, &run.CountiesProcessed, &run.WagesLoaded, &run.WagesRejected,
		&run.ExpensesLoaded, &run.ExpensesRejected, &run.ErrorMessage,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return &run, nil
}

// ListRuns returns recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.pool.Query(ctx,
		`SELECT run_id, run_start_timestamp, run_end_timestamp, run_status, state_fips,
			scrape_date, counties_processed, wages_loaded, wages_rejected,
			expenses_loaded, expenses_rejected, error_message
		 FROM etl_runs ORDER BY run_start_timestamp DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.RunID, &run.StartTime, &run.EndTime, &run.Status, &run.StateFIPS,
			&run.ScrapeDate, &run.CountiesProcessed, &run.WagesLoaded, &run.WagesRejected,
			&run.ExpensesLoaded, &run.ExpensesRejected, &run.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
