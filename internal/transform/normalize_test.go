package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wage-etl/internal/scraper"
)

var pageDate = time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)

func TestNormalizeWagesSingleRow(t *testing.T) {
	rows := []scraper.RawRow{{
		"Category":             "Living Wage",
		"1 Adult - 0 Children": "$20.00",
		"county_fips":          "017",
	}}

	records, rejects := NormalizeWages(rows, "34", "17", pageDate)
	require.Empty(t, rejects)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "34017", r.CountyFIPS)
	assert.Equal(t, "living", r.WageType)
	assert.Equal(t, 20.0, r.HourlyWage)
	assert.Equal(t, 1, r.Adults)
	assert.Equal(t, 1, r.WorkingAdults)
	assert.Equal(t, 0, r.Children)
	assert.Equal(t, pageDate, r.PageUpdatedAt)
}

func TestNormalizeWagesMeltsAllFamilyColumns(t *testing.T) {
	rows := []scraper.RawRow{{
		"Category":                          "Living Wage",
		"1 Adult - 0 Children":              "$20.00",
		"1 Adult - 1 Child":                 "$35.50",
		"2 Adults (Both Working) - 1 Child": "$24.40",
		"county_fips":                       "017",
	}}

	records, rejects := NormalizeWages(rows, "34", "17", pageDate)
	require.Empty(t, rejects)
	require.Len(t, records, 3)

	// Deterministic order: family columns sorted.
	assert.Equal(t, 20.0, records[0].HourlyWage)
	assert.Equal(t, 35.50, records[1].HourlyWage)
	assert.Equal(t, 1, records[1].Children)
	assert.Equal(t, 2, records[2].Adults)
	assert.Equal(t, 2, records[2].WorkingAdults)
}

func TestNormalizeWagesEmptyInput(t *testing.T) {
	records, rejects := NormalizeWages(nil, "34", "17", pageDate)
	assert.Empty(t, records)
	assert.Empty(t, rejects)
}

func TestNormalizeWagesZeroPadsShortFIPS(t *testing.T) {
	rows := []scraper.RawRow{{
		"Category":             "Minimum Wage",
		"1 Adult - 0 Children": "$15.13",
		"county_fips":          "1",
	}}

	records, rejects := NormalizeWages(rows, "1", "1", pageDate)
	require.Empty(t, rejects)
	require.Len(t, records, 1)
	assert.Equal(t, "01001", records[0].CountyFIPS)
	assert.Len(t, records[0].CountyFIPS, 5)
}

func TestNormalizeWagesUnknownFamilyHeaderRejected(t *testing.T) {
	rows := []scraper.RawRow{{
		"Category":              "Living Wage",
		"5 Adults - 9 Children": "$12.00",
		"1 Adult - 0 Children":  "$20.00",
		"county_fips":           "017",
	}}

	records, rejects := NormalizeWages(rows, "34", "17", pageDate)
	require.Len(t, records, 1, "valid column still normalizes")
	require.Len(t, rejects, 1)
	assert.Equal(t, "5 Adults - 9 Children", rejects[0].RawData["family"])
	assert.NotEmpty(t, rejects[0].Reason)
}

func TestNormalizeWagesUnknownCategoryRejected(t *testing.T) {
	rows := []scraper.RawRow{{
		"Category":             "Prevailing Wage",
		"1 Adult - 0 Children": "$20.00",
		"county_fips":          "017",
	}}

	records, rejects := NormalizeWages(rows, "34", "17", pageDate)
	assert.Empty(t, records)
	require.Len(t, rejects, 1)
	assert.Contains(t, rejects[0].Reason, "WageType")
}

func TestNormalizeWagesGarbageValueBecomesZero(t *testing.T) {
	rows := []scraper.RawRow{{
		"Category":             "Living Wage",
		"1 Adult - 0 Children": "n/a",
		"county_fips":          "017",
	}}

	records, rejects := NormalizeWages(rows, "34", "17", pageDate)
	require.Empty(t, rejects)
	require.Len(t, records, 1)
	assert.Equal(t, 0.0, records[0].HourlyWage)
}

func TestNormalizeExpensesSingleRow(t *testing.T) {
	rows := []scraper.RawRow{{
		"Category":             "Food",
		"1 Adult - 0 Children": "$5,000",
		"county_fips":          "017",
	}}

	records, rejects := NormalizeExpenses(rows, "34", "17", pageDate)
	require.Empty(t, rejects)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "food", r.ExpenseCategory)
	assert.Equal(t, 5000.0, r.AnnualAmount)
	assert.Equal(t, "34017", r.CountyFIPS)
	assert.Equal(t, 1, r.Adults)
}

func TestNormalizeExpensesDerivedCategories(t *testing.T) {
	rows := []scraper.RawRow{
		{"Category": "Annual taxes", "1 Adult - 0 Children": "$8,000", "county_fips": "017"},
		{"Category": "Required annual income after taxes", "1 Adult - 0 Children": "$40,000", "county_fips": "017"},
	}

	records, rejects := NormalizeExpenses(rows, "34", "17", pageDate)
	require.Empty(t, rejects)
	require.Len(t, records, 2)
	assert.Equal(t, "annual_taxes", records[0].ExpenseCategory)
	assert.Equal(t, "required_after_tax", records[1].ExpenseCategory)
}

func TestNormalizeExpensesUnknownCategorySluggedThenRejected(t *testing.T) {
	rows := []scraper.RawRow{{
		"Category":             "Pet Insurance",
		"1 Adult - 0 Children": "$900",
		"county_fips":          "017",
	}}

	records, rejects := NormalizeExpenses(rows, "34", "17", pageDate)
	assert.Empty(t, records)
	require.Len(t, rejects, 1)
	// The slug fallback keeps the label visible in the reject payload.
	assert.Equal(t, "Pet Insurance", rejects[0].RawData["category"])
}

func TestMeltRowsLowercasesOnlyReservedColumns(t *testing.T) {
	rows := []scraper.RawRow{{
		"category":             "Living Wage",
		"1 ADULT - 0 CHILDREN": "$20.00",
		"county_fips":          "017",
	}}

	melted := meltRows(rows)
	require.Len(t, melted, 1)
	assert.Equal(t, "Living Wage", melted[0].Category)
	// Family header case is preserved for downstream normalization.
	assert.Equal(t, "1 ADULT - 0 CHILDREN", melted[0].Family)
}
