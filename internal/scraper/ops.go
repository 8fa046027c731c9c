package scraper

import (
	"context"
	"time"
)

// ScrapeResult is the outcome of scraping one county. A failed scrape carries
// the error text instead of rows.
type ScrapeResult struct {
	FIPSCode      string
	Success       bool
	WagesRows     []RawRow
	ExpensesRows  []RawRow
	PageUpdatedAt *time.Time
	Error         string
}

// ScrapeOne scrapes a single county and never returns an error: any failure
// is converted into an unsuccessful result so one bad county cannot abort a
// run.
func ScrapeOne(ctx context.Context, s *WageScraper, stateFIPS, countyFIPS string) ScrapeResult {
	fullFIPS := zeroPad(stateFIPS, 2) + zeroPad(countyFIPS, 3)

	tables, err := s.ScrapeCounty(ctx, stateFIPS, countyFIPS)
	if err != nil {
		return ScrapeResult{FIPSCode: fullFIPS, Error: err.Error()}
	}
	return ScrapeResult{
		FIPSCode:      fullFIPS,
		Success:       true,
		WagesRows:     tables.WagesRows,
		ExpensesRows:  tables.ExpensesRows,
		PageUpdatedAt: tables.PageUpdatedAt,
	}
}

// Iterator yields scrape results one county at a time, in input order,
// reusing the scraper's session across the whole sequence. It is finite and
// restartable only by constructing a new iterator.
type Iterator struct {
	ctx      context.Context
	scraper  *WageScraper
	state    string
	counties []string
	next     int
}

// ScrapeMany returns an iterator over the given counties of one state.
func ScrapeMany(ctx context.Context, s *WageScraper, stateFIPS string, countyCodes []string) *Iterator {
	return &Iterator{
		ctx:      ctx,
		scraper:  s,
		state:    stateFIPS,
		counties: countyCodes,
	}
}

// Next scrapes the next county. The second return is false once the county
// list is exhausted.
func (it *Iterator) Next() (ScrapeResult, bool) {
	if it.next >= len(it.counties) {
		return ScrapeResult{}, false
	}
	county := it.counties[it.next]
	it.next++
	return ScrapeOne(it.ctx, it.scraper, it.state, county), true
}

// Remaining reports how many counties have not been scraped yet.
func (it *Iterator) Remaining() int {
	return len(it.counties) - it.next
}
