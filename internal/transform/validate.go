package transform

import (
	"fmt"
	"strings"

	"github.com/jonathan/wage-etl/internal/scraper"
)

// maxNullRatio is the largest tolerable fraction of empty cells in a scraped
// table.
const maxNullRatio = 0.10

// ValidateWideInput checks a scraped table before transformation: it must be
// non-empty, carry a category column, and have at most 10% empty cells.
func ValidateWideInput(rows []scraper.RawRow) (bool, []string) {
	var issues []string

	if len(rows) == 0 {
		return false, []string{"table is empty"}
	}

	hasCategory := false
	for key := range rows[0] {
		if strings.ToLower(key) == "category" {
			hasCategory = true
			break
		}
	}
	if !hasCategory {
		issues = append(issues, "'category' column not found")
	}

	totalCells := 0
	nullCells := 0
	for _, row := range rows {
		for _, value := range row {
			totalCells++
			if strings.TrimSpace(value) == "" {
				nullCells++
			}
		}
	}
	if totalCells > 0 {
		ratio := float64(nullCells) / float64(totalCells)
		if ratio > maxNullRatio {
			issues = append(issues, fmt.Sprintf("table has more than 10%% null values (%.2f%%)", ratio*100))
		}
	}

	return len(issues) == 0, issues
}

// countyKeyed is satisfied by both record kinds.
type countyKeyed interface {
	County() string
}

// ValidateConsistency checks that every record in a batch belongs to the
// expected county. Any mismatch fails the whole batch: it signals a systemic
// extraction bug rather than a single bad record.
func ValidateConsistency[T countyKeyed](records []T, expectedCounty string) (bool, []string) {
	expected := zeroPad(expectedCounty, 5)

	var issues []string
	for i, record := range records {
		got := zeroPad(record.County(), 5)
		if got != expected {
			issues = append(issues, fmt.Sprintf("record %d: county_fips %s does not match expected %s", i, got, expected))
		}
	}
	return len(issues) == 0, issues
}
