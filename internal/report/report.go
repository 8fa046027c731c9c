// Package report provides formatted output utilities for the CLI.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/wage-etl/internal/census"
	"github.com/jonathan/wage-etl/internal/load"
	"github.com/jonathan/wage-etl/internal/pipeline"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for CLI reports
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunSummary outputs a human-readable summary of one completed run.
func (p *Printer) PrintRunSummary(state string, summary *pipeline.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("State:    %s\n", state))
	sb.WriteString(fmt.Sprintf("Run:      #%d  (%s)\n", summary.RunID, summary.Status))
	sb.WriteString(fmt.Sprintf("Counties: %d/%d succeeded (%.1f%%)\n",
		summary.CountiesSucceeded, summary.Counties, summary.SuccessRate*100))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Wages:    %d loaded, %d rejected\n", summary.WagesLoaded, summary.WagesRejected))
	sb.WriteString(fmt.Sprintf("Expenses: %d loaded, %d rejected", summary.ExpensesLoaded, summary.ExpensesRejected))

	p.printBox("ETL RUN SUMMARY", sb.String())
}

// PrintRuns outputs recent runs, newest first.
func (p *Printer) PrintRuns(runs []load.Run) {
	if len(runs) == 0 {
		p.printBox("RECENT RUNS", "No runs recorded")
		return
	}

	var sb strings.Builder
	count := min(len(runs), maxItemsToShow)
	for i := 0; i < count; i++ {
		run := runs[i]
		sb.WriteString(fmt.Sprintf("#%d  %s  state=%s\n", run.RunID, run.Status, run.StateFIPS))
		sb.WriteString(fmt.Sprintf("    started %s\n", run.StartTime.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("    wages %d/%d  expenses %d/%d",
			run.WagesLoaded, run.WagesLoaded+run.WagesRejected,
			run.ExpensesLoaded, run.ExpensesLoaded+run.ExpensesRejected))
		if run.ErrorMessage != nil {
			msg := *run.ErrorMessage
			if len(msg) > 45 {
				msg = msg[:42] + "..."
			}
			sb.WriteString(fmt.Sprintf("\n    error: %s", msg))
		}
		if i < count-1 {
			sb.WriteString("\n\n")
		}
	}

	if len(runs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n\n... and %d more runs", len(runs)-maxItemsToShow))
	}

	p.printBox("RECENT RUNS", sb.String())
}

// PrintStagingCounts outputs per-table staging row counts.
func (p *Printer) PrintStagingCounts(counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	tables := []string{"stg_wages", "stg_expenses", "stg_wages_rejects", "stg_expenses_rejects"}

	var sb strings.Builder
	for i, table := range tables {
		if n, ok := counts[table]; ok {
			sb.WriteString(fmt.Sprintf("%-22s %d", table, n))
			if i < len(tables)-1 {
				sb.WriteString("\n")
			}
		}
	}

	p.printBox("STAGING TABLES", sb.String())
}

// PrintStates outputs the known states.
func (p *Printer) PrintStates(states []census.State) {
	if len(states) == 0 {
		p.printBox("STATES", "No states found")
		return
	}

	var sb strings.Builder
	for i, state := range states {
		sb.WriteString(fmt.Sprintf("%s  %-2s  %s", state.StateFIPS, state.StateAbbr, state.StateName))
		if i < len(states)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("STATES", sb.String())
}

// PrintCounties outputs the counties resolved for a state.
func (p *Printer) PrintCounties(counties []census.County) {
	if len(counties) == 0 {
		p.printBox("COUNTIES", "No counties found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total: %d\n\n", len(counties)))

	count := min(len(counties), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("%s  %s", counties[i].FullFIPS, counties[i].CountyName))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(counties) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more counties", len(counties)-maxItemsToShow))
	}

	p.printBox("COUNTIES", sb.String())
}
