package load

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/jonathan/wage-etl/internal/transform"
)

// Reject table names. Writes are restricted to this whitelist as a guard
// against injection through the table parameter.
const (
	RejectTableWages    = "stg_wages_rejects"
	RejectTableExpenses = "stg_expenses_rejects"
)

var allowedRejectTables = map[string]bool{
	RejectTableWages:    true,
	RejectTableExpenses: true,
}

// maxReasonLength bounds the stored rejection reason.
const maxReasonLength = 1000

func truncateReason(reason string) string {
	if reason == "" {
		return "Unknown"
	}
	if len(reason) > maxReasonLength {
		return reason[:maxReasonLength]
	}
	return reason
}

// rejectRows serializes rejects into COPY rows. Raw payloads are stored as
// opaque JSON.
func rejectRows(rejects []transform.Reject, runID int) ([][]any, error) {
	rows := make([][]any, len(rejects))
	for i, reject := range rejects {
		raw, err := json.Marshal(reject.RawData)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize reject payload: %w", err)
		}
		rows[i] = []any{runID, string(raw), truncateReason(reject.Reason)}
	}
	return rows, nil
}

// LoadRejects bulk-inserts rejected records into one of the two reject
// tables. The whole batch commits or rolls back as a unit.
func (db *DB) LoadRejects(ctx context.Context, rejects []transform.Reject, runID int, table string) (int, error) {
	if !allowedRejectTables[table] {
		return 0, fmt.Errorf("invalid reject table: %q", table)
	}
	if len(rejects) == 0 {
		return 0, nil
	}

	rows, err := rejectRows(rejects, runID)
	if err != nil {
		return 0, err
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	count, err := tx.CopyFrom(ctx, pgx.Identifier{table},
		[]string{"run_id", "raw_data", "rejection_reason"}, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy rejects into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit rejects: %w", err)
	}

	log.WithFields(log.Fields{"table": table, "count": count}).Debug("Loaded rejects")
	return int(count), nil
}
