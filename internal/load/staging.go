package load

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/jonathan/wage-etl/internal/transform"
)

var stagingColumns = []string{
	"run_id", "county_fips", "adults", "working_adults", "children",
	"category", "amount", "page_updated_at",
}

const tmpTableDefs = `
	run_id INTEGER,
	county_fips VARCHAR(5),
	adults INTEGER,
	working_adults INTEGER,
	children INTEGER,
	category VARCHAR(50),
	amount NUMERIC(12,2),
	page_updated_at DATE
`

// wageRows converts records into COPY rows matching stagingColumns.
func wageRows(records []transform.WageRecord, runID int) [][]any {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			runID, r.CountyFIPS, r.Adults, r.WorkingAdults, r.Children,
			r.WageType, r.HourlyWage, r.PageUpdatedAt,
		}
	}
	return rows
}

// expenseRows converts records into COPY rows matching stagingColumns.
func expenseRows(records []transform.ExpenseRecord, runID int) [][]any {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			runID, r.CountyFIPS, r.Adults, r.WorkingAdults, r.Children,
			r.ExpenseCategory, r.AnnualAmount, r.PageUpdatedAt,
		}
	}
	return rows
}

// bulkUpsert stages COPY rows into a temp table and merges them into the
// target staging table on the natural key. The whole operation runs in one
// transaction: full success or full rollback.
func (db *DB) bulkUpsert(ctx context.Context, rows [][]any, tmpTable, targetTable, keyColumn, valueColumn string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		fmt.Sprintf("CREATE TEMP TABLE %s (%s) ON COMMIT DROP", tmpTable, tmpTableDefs),
	); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tmpTable}, stagingColumns, pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("failed to copy into %s: %w", tmpTable, err)
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %[1]s (run_id, county_fips, adults, working_adults, children, %[2]s, %[3]s, page_updated_at)
		SELECT run_id, county_fips, adults, working_adults, children, category, amount, page_updated_at
		FROM %[4]s
		ON CONFLICT (county_fips, adults, working_adults, children, %[2]s)
		DO UPDATE SET
			run_id = EXCLUDED.run_id,
			%[3]s = EXCLUDED.%[3]s,
			page_updated_at = EXCLUDED.page_updated_at,
			load_timestamp = CURRENT_TIMESTAMP`,
		targetTable, keyColumn, valueColumn, tmpTable,
	))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert into %s: %w", targetTable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// BulkUpsertWages loads wage records into stg_wages, inserting or updating by
// natural key. Empty input is a no-op.
func (db *DB) BulkUpsertWages(ctx context.Context, records []transform.WageRecord, runID int) (int, error) {
	count, err := db.bulkUpsert(ctx, wageRows(records, runID), "tmp_wages", "stg_wages", "wage_type", "hourly_wage")
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.WithField("count", count).Info("Upserted wage records")
	}
	return count, nil
}

// BulkUpsertExpenses loads expense records into stg_expenses, inserting or
// updating by natural key. Empty input is a no-op.
func (db *DB) BulkUpsertExpenses(ctx context.Context, records []transform.ExpenseRecord, runID int) (int, error) {
	count, err := db.bulkUpsert(ctx, expenseRows(records, runID), "tmp_expenses", "stg_expenses", "expense_category", "annual_amount")
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.WithField("count", count).Info("Upserted expense records")
	}
	return count, nil
}

// StagingCounts returns current row counts for the staging and reject tables.
func (db *DB) StagingCounts(ctx context.Context) (map[string]int, error) {
	tables := []string{"stg_wages", "stg_expenses", RejectTableWages, RejectTableExpenses}

	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		var n int
		if err := db.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
