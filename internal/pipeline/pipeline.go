// Package pipeline drives one extract-normalize-validate-load execution per
// state.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jonathan/wage-etl/internal/load"
	"github.com/jonathan/wage-etl/internal/scraper"
	"github.com/jonathan/wage-etl/internal/transform"
)

// Store is the persistence surface the pipeline needs. Satisfied by load.DB.
type Store interface {
	StartRun(ctx context.Context, stateFIPS string) (int, error)
	EndRun(ctx context.Context, runID int, status string, counts load.RunCounts, errMsg string) error
	BulkUpsertWages(ctx context.Context, records []transform.WageRecord, runID int) (int, error)
	BulkUpsertExpenses(ctx context.Context, records []transform.ExpenseRecord, runID int) (int, error)
	LoadRejects(ctx context.Context, rejects []transform.Reject, runID int, table string) (int, error)
}

// ResultSource yields scrape results one county at a time. Satisfied by
// scraper.Iterator.
type ResultSource interface {
	Next() (scraper.ScrapeResult, bool)
}

// Options tunes per-run behavior.
type Options struct {
	// MinDelay/MaxDelay bound the randomized politeness pause between
	// county requests.
	MinDelay time.Duration
	MaxDelay time.Duration
	// MinSuccessRate is the per-county success fraction below which the
	// end-of-run summary logs a warning.
	MinSuccessRate float64
}

// Summary reports what one run accomplished.
type Summary struct {
	RunID             int
	Status            string
	Counties          int
	CountiesSucceeded int
	WagesLoaded       int
	WagesRejected     int
	ExpensesLoaded    int
	ExpensesRejected  int
	SuccessRate       float64
}

// Pipeline processes states sequentially, one county at a time.
type Pipeline struct {
	store Store
	opts  Options
	sleep func(time.Duration)
	randf func() float64
	now   func() time.Time
}

// New creates a pipeline over the given store.
func New(store Store, opts Options) *Pipeline {
	return &Pipeline{
		store: store,
		opts:  opts,
		sleep: time.Sleep,
		randf: rand.Float64,
		now:   time.Now,
	}
}

// countyFields builds the structured log metadata attached to every
// per-county message.
func countyFields(year int, stateFIPS, countyFIPS string) log.Fields {
	return log.Fields{"year": year, "state": stateFIPS, "county": countyFIPS}
}

// wideReject wraps a whole raw table into one reject payload.
func wideReject(rows []scraper.RawRow, countyFIPS string, issues []string) transform.Reject {
	return transform.Reject{
		RawData: map[string]any{"rows": rows, "county_fips": countyFIPS},
		Reason:  strings.Join(issues, "; "),
	}
}

// ProcessState runs the full pipeline for one state: scrape every county,
// normalize and validate, bulk-load records and rejects, and finalize the
// tracked run. Per-county failures never abort the run; store failures
// finalize the run as FAILED and return the error.
func (p *Pipeline) ProcessState(ctx context.Context, stateFIPS string, results ResultSource) (*Summary, error) {
	runID, err := p.store.StartRun(ctx, stateFIPS)
	if err != nil {
		return nil, fmt.Errorf("failed to start run for state %s: %w", stateFIPS, err)
	}

	year := p.now().Year()

	var (
		allWages       []transform.WageRecord
		allExpenses    []transform.ExpenseRecord
		wageRejects    []transform.Reject
		expenseRejects []transform.Reject
		processed      int
		succeeded      int
	)

	for {
		result, ok := results.Next()
		if !ok {
			break
		}
		processed++
		countyFIPS := result.FIPSCode[len(result.FIPSCode)-3:]
		fields := countyFields(year, stateFIPS, countyFIPS)

		if !result.Success {
			log.WithFields(fields).Warnf("Scrape failed: %s", result.Error)
			p.politenessDelay()
			continue
		}

		if ok, issues := transform.ValidateWideInput(result.WagesRows); !ok {
			log.WithFields(fields).Warnf("Wage table rejected: %v", issues)
			wageRejects = append(wageRejects, wideReject(result.WagesRows, result.FIPSCode, issues))
			p.politenessDelay()
			continue
		}
		if ok, issues := transform.ValidateWideInput(result.ExpensesRows); !ok {
			log.WithFields(fields).Warnf("Expense table rejected: %v", issues)
			expenseRejects = append(expenseRejects, wideReject(result.ExpensesRows, result.FIPSCode, issues))
			p.politenessDelay()
			continue
		}

		pageDate := p.now()
		if result.PageUpdatedAt != nil {
			pageDate = *result.PageUpdatedAt
		}

		wages, wRejects := transform.NormalizeWages(result.WagesRows, stateFIPS, countyFIPS, pageDate)
		expenses, eRejects := transform.NormalizeExpenses(result.ExpensesRows, stateFIPS, countyFIPS, pageDate)

		// A county mismatch anywhere means the extraction itself went
		// wrong: reject the whole county batch.
		if ok, issues := transform.ValidateConsistency(wages, result.FIPSCode); !ok {
			log.WithFields(fields).Errorf("Wage consistency check failed: %v", issues)
			wageRejects = append(wageRejects, wideReject(result.WagesRows, result.FIPSCode, issues))
			p.politenessDelay()
			continue
		}
		if ok, issues := transform.ValidateConsistency(expenses, result.FIPSCode); !ok {
			log.WithFields(fields).Errorf("Expense consistency check failed: %v", issues)
			expenseRejects = append(expenseRejects, wideReject(result.ExpensesRows, result.FIPSCode, issues))
			p.politenessDelay()
			continue
		}

		allWages = append(allWages, wages...)
		allExpenses = append(allExpenses, expenses...)
		wageRejects = append(wageRejects, wRejects...)
		expenseRejects = append(expenseRejects, eRejects...)
		succeeded++

		log.WithFields(fields).Info("County processed")
		p.politenessDelay()
	}

	counts := load.RunCounts{Counties: processed}

	wagesLoaded, err := p.store.BulkUpsertWages(ctx, allWages, runID)
	if err != nil {
		return nil, p.fail(ctx, runID, counts, fmt.Errorf("wage load failed: %w", err))
	}
	counts.WagesLoaded = wagesLoaded

	expensesLoaded, err := p.store.BulkUpsertExpenses(ctx, allExpenses, runID)
	if err != nil {
		return nil, p.fail(ctx, runID, counts, fmt.Errorf("expense load failed: %w", err))
	}
	counts.ExpensesLoaded = expensesLoaded

	wagesRejected, err := p.store.LoadRejects(ctx, wageRejects, runID, load.RejectTableWages)
	if err != nil {
		return nil, p.fail(ctx, runID, counts, fmt.Errorf("wage reject load failed: %w", err))
	}
	counts.WagesRejected = wagesRejected

	expensesRejected, err := p.store.LoadRejects(ctx, expenseRejects, runID, load.RejectTableExpenses)
	if err != nil {
		return nil, p.fail(ctx, runID, counts, fmt.Errorf("expense reject load failed: %w", err))
	}
	counts.ExpensesRejected = expensesRejected

	status := decideStatus(counts)
	if err := p.store.EndRun(ctx, runID, status, counts, ""); err != nil {
		return nil, fmt.Errorf("failed to end run %d: %w", runID, err)
	}

	summary := &Summary{
		RunID:             runID,
		Status:            status,
		Counties:          processed,
		CountiesSucceeded: succeeded,
		WagesLoaded:       counts.WagesLoaded,
		WagesRejected:     counts.WagesRejected,
		ExpensesLoaded:    counts.ExpensesLoaded,
		ExpensesRejected:  counts.ExpensesRejected,
	}
	if processed > 0 {
		summary.SuccessRate = float64(succeeded) / float64(processed)
	}

	log.WithFields(log.Fields{
		"run_id":       runID,
		"status":       status,
		"loaded":       counts.WagesLoaded + counts.ExpensesLoaded,
		"rejected":     counts.WagesRejected + counts.ExpensesRejected,
		"success_rate": fmt.Sprintf("%.1f%%", summary.SuccessRate*100),
	}).Info("ETL run complete")

	if summary.SuccessRate < p.opts.MinSuccessRate {
		log.WithField("state", stateFIPS).Warnf(
			"Success rate %.1f%% below threshold %.1f%%",
			summary.SuccessRate*100, p.opts.MinSuccessRate*100)
	}

	return summary, nil
}

// fail finalizes a run as FAILED with whatever partial counts exist, then
// returns the original error.
func (p *Pipeline) fail(ctx context.Context, runID int, counts load.RunCounts, cause error) error {
	if endErr := p.store.EndRun(ctx, runID, load.StatusFailed, counts, cause.Error()); endErr != nil {
		log.WithField("run_id", runID).Errorf("Failed to finalize run: %v", endErr)
	}
	return cause
}

// decideStatus applies the terminal status policy: FAILED when nothing
// loaded, PARTIAL when loads and rejects coexist, SUCCESS otherwise.
func decideStatus(counts load.RunCounts) string {
	totalLoaded := counts.WagesLoaded + counts.ExpensesLoaded
	totalRejected := counts.WagesRejected + counts.ExpensesRejected

	switch {
	case totalLoaded == 0:
		return load.StatusFailed
	case totalRejected > 0:
		return load.StatusPartial
	default:
		return load.StatusSuccess
	}
}

// politenessDelay sleeps a random duration inside the configured bounds
// between county requests.
func (p *Pipeline) politenessDelay() {
	if p.opts.MaxDelay <= 0 {
		return
	}
	spread := p.opts.MaxDelay - p.opts.MinDelay
	delay := p.opts.MinDelay + time.Duration(p.randf()*float64(spread))
	p.sleep(delay)
}
