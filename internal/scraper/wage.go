// Package scraper extracts wage and expense tables from living wage
// calculator county pages.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"github.com/jonathan/wage-etl/internal/httpclient"
)

// RawRow maps a raw column header to its cell value, plus the county FIPS
// under the "county_fips" key. Cells missing from a short row are empty
// strings.
type RawRow map[string]string

// CountyTables holds the two extracted tables for one county page.
type CountyTables struct {
	WagesRows     []RawRow
	ExpensesRows  []RawRow
	PageUpdatedAt *time.Time
}

// WageScraper fetches county pages and extracts their wage/expense tables.
type WageScraper struct {
	client *httpclient.Client
}

// New creates a scraper on top of an HTTP client whose base URL points at the
// calculator site.
func New(client *httpclient.Client) *WageScraper {
	return &WageScraper{client: client}
}

// Close releases the underlying HTTP session.
func (s *WageScraper) Close() {
	s.client.Close()
}

// RequestCount returns total network requests made.
func (s *WageScraper) RequestCount() int {
	return s.client.RequestCount()
}

// Endpoint builds the county page path from state and county FIPS.
func Endpoint(stateFIPS, countyFIPS string) string {
	return "counties/" + zeroPad(stateFIPS, 2) + zeroPad(countyFIPS, 3)
}

func zeroPad(code string, width int) string {
	if len(code) >= width {
		return code
	}
	return strings.Repeat("0", width-len(code)) + code
}

// ScrapeCounty fetches and parses the page for one county. Network failures
// and structural page errors propagate to the caller.
func (s *WageScraper) ScrapeCounty(ctx context.Context, stateFIPS, countyFIPS string) (*CountyTables, error) {
	countyFIPS = zeroPad(countyFIPS, 3)

	content, err := s.client.Get(ctx, Endpoint(stateFIPS, countyFIPS), nil)
	if err != nil {
		return nil, err
	}
	return parsePage(content, countyFIPS)
}

// parsePage extracts the wage and expense tables from page HTML. The first
// results table holds wages, the second expenses.
func parsePage(content []byte, countyFIPS string) (*CountyTables, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	tables := doc.Find("table.results_table")
	if tables.Length() < 2 {
		return nil, fmt.Errorf("expected at least 2 tables, found %d", tables.Length())
	}

	wages, err := extractTable(tables.Eq(0), countyFIPS)
	if err != nil {
		return nil, err
	}
	expenses, err := extractTable(tables.Eq(1), countyFIPS)
	if err != nil {
		return nil, err
	}

	return &CountyTables{
		WagesRows:     wages,
		ExpensesRows:  expenses,
		PageUpdatedAt: parsePageUpdated(doc),
	}, nil
}

// extractTable converts one table into row maps keyed by reconstructed
// headers. Row/header length mismatches are padded or truncated, never fatal.
func extractTable(table *goquery.Selection, countyFIPS string) ([]RawRow, error) {
	headers, err := extractHeaders(table)
	if err != nil {
		return nil, err
	}
	rows := extractRows(table)

	extracted := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(headers) {
			log.WithFields(log.Fields{
				"county":  countyFIPS,
				"values":  len(row),
				"headers": len(headers),
			}).Warn("Row/header length mismatch")
			if len(row) < len(headers) {
				padded := make([]string, len(headers))
				copy(padded, row)
				row = padded
			} else {
				row = row[:len(headers)]
			}
		}

		rowMap := make(RawRow, len(headers)+1)
		for i, header := range headers {
			rowMap[header] = row[i]
		}
		rowMap["county_fips"] = zeroPad(countyFIPS, 3)
		extracted = append(extracted, rowMap)
	}
	return extracted, nil
}

// extractHeaders rebuilds column headers from the two-row thead structure:
// the first row carries family-configuration labels with colspans, the second
// carries per-column child counts. They combine as "{family} - {children}".
// A blank first cell in the second row becomes the "Category" column.
func extractHeaders(table *goquery.Selection) ([]string, error) {
	theads := table.Find("thead")
	if theads.Length() < 2 {
		return nil, fmt.Errorf("unexpected table header format: found %d header rows", theads.Length())
	}

	type adultConfig struct {
		text    string
		colspan int
	}
	var adultConfigs []adultConfig
	theads.Eq(0).Find("tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
		text := strings.TrimSpace(th.Text())
		if text == "" {
			return
		}
		colspan := 1
		if attr, ok := th.Attr("colspan"); ok {
			if n, err := strconv.Atoi(attr); err == nil {
				colspan = n
			}
		}
		adultConfigs = append(adultConfigs, adultConfig{text: text, colspan: colspan})
	})

	var childCounts []string
	theads.Eq(1).Find("tr").First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		childCounts = append(childCounts, strings.TrimSpace(cell.Text()))
	})
	if len(childCounts) == 0 {
		return nil, fmt.Errorf("unexpected table header format: empty child count row")
	}

	headers := make([]string, 0, len(childCounts))
	if childCounts[0] != "" {
		headers = append(headers, childCounts[0])
	} else {
		headers = append(headers, "Category")
	}

	colIndex := 1
	for _, cfg := range adultConfigs {
		for i := 0; i < cfg.colspan; i++ {
			if colIndex < len(childCounts) {
				headers = append(headers, fmt.Sprintf("%s - %s", cfg.text, childCounts[colIndex]))
				colIndex++
			}
		}
	}
	return headers, nil
}

// extractRows returns tbody cell texts, one slice per row.
func extractRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, cells)
	})
	return rows
}

var pageUpdatedRe = regexp.MustCompile(`(?i)last updated[:\s]+([A-Za-z]+ \d{1,2}, \d{4}|[A-Za-z]+ \d{4}|\d{4}-\d{2}-\d{2})`)

var pageUpdatedLayouts = []string{"January 2, 2006", "January 2006", "2006-01-02"}

// parsePageUpdated pulls the "last updated" date from the page footer when
// present.
func parsePageUpdated(doc *goquery.Document) *time.Time {
	match := pageUpdatedRe.FindStringSubmatch(doc.Text())
	if match == nil {
		return nil
	}
	for _, layout := range pageUpdatedLayouts {
		if t, err := time.Parse(layout, match[1]); err == nil {
			return &t
		}
	}
	return nil
}
