package transform

import (
	"sort"
	"strings"
	"time"

	"github.com/jonathan/wage-etl/internal/scraper"
)

// meltedRow is one (category, family-configuration) pair produced by
// reshaping a wide table row.
type meltedRow struct {
	Category string
	Family   string
	Value    string
}

func zeroPad(code string, width int) string {
	if len(code) >= width {
		return code
	}
	return strings.Repeat("0", width-len(code)) + code
}

// meltRows reshapes wide rows (one per category, one column per family
// configuration) into long rows, one per category/family pair. Family columns
// are visited in sorted order so output is deterministic.
func meltRows(rows []scraper.RawRow) []meltedRow {
	var melted []meltedRow
	for _, row := range rows {
		category := ""
		var familyCols []string
		for key := range row {
			switch strings.ToLower(key) {
			case "category":
				category = row[key]
			case "county_fips":
				// carried separately
			default:
				familyCols = append(familyCols, key)
			}
		}
		sort.Strings(familyCols)

		for _, family := range familyCols {
			melted = append(melted, meltedRow{
				Category: category,
				Family:   family,
				Value:    row[family],
			})
		}
	}
	return melted
}

// rejectPayload preserves the melted row for the reject channel.
func rejectPayload(m meltedRow, countyFIPS string) map[string]any {
	return map[string]any{
		"category":    m.Category,
		"family":      m.Family,
		"value":       m.Value,
		"county_fips": countyFIPS,
	}
}

// NormalizeWages converts raw wage table rows into validated WageRecords.
// Rows that fail schema validation are returned as rejects; a bad row never
// drops the rest of the batch.
func NormalizeWages(rows []scraper.RawRow, stateFIPS, countyFIPS string, pageUpdatedAt time.Time) ([]WageRecord, []Reject) {
	if len(rows) == 0 {
		return nil, nil
	}

	fullFIPS := zeroPad(stateFIPS, 2) + zeroPad(countyFIPS, 3)

	var records []WageRecord
	var rejects []Reject
	for _, m := range meltRows(rows) {
		cfg, _ := FamilyConfigFor(m.Family)

		record := WageRecord{
			CountyFIPS:    fullFIPS,
			PageUpdatedAt: pageUpdatedAt,
			Adults:        cfg.Adults,
			WorkingAdults: cfg.WorkingAdults,
			Children:      cfg.Children,
			WageType:      LookupCategoryValue(m.Category),
			HourlyWage:    CleanCurrency(m.Value),
		}

		if err := record.Validate(); err != nil {
			rejects = append(rejects, Reject{
				RawData: rejectPayload(m, fullFIPS),
				Reason:  err.Error(),
			})
			continue
		}
		records = append(records, record)
	}
	return records, rejects
}

// NormalizeExpenses converts raw expense table rows into validated
// ExpenseRecords, diverting failures to the reject channel.
func NormalizeExpenses(rows []scraper.RawRow, stateFIPS, countyFIPS string, pageUpdatedAt time.Time) ([]ExpenseRecord, []Reject) {
	if len(rows) == 0 {
		return nil, nil
	}

	fullFIPS := zeroPad(stateFIPS, 2) + zeroPad(countyFIPS, 3)

	var records []ExpenseRecord
	var rejects []Reject
	for _, m := range meltRows(rows) {
		cfg, _ := FamilyConfigFor(m.Family)

		record := ExpenseRecord{
			CountyFIPS:      fullFIPS,
			PageUpdatedAt:   pageUpdatedAt,
			Adults:          cfg.Adults,
			WorkingAdults:   cfg.WorkingAdults,
			Children:        cfg.Children,
			ExpenseCategory: LookupCategoryValue(m.Category),
			AnnualAmount:    CleanCurrency(m.Value),
		}

		if err := record.Validate(); err != nil {
			rejects = append(rejects, Reject{
				RawData: rejectPayload(m, fullFIPS),
				Reason:  err.Error(),
			})
			continue
		}
		records = append(records, record)
	}
	return records, rejects
}
