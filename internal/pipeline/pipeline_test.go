package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wage-etl/internal/load"
	"github.com/jonathan/wage-etl/internal/scraper"
	"github.com/jonathan/wage-etl/internal/transform"
)

type fakeStore struct {
	startErr   error
	wageErr    error
	expenseErr error
	rejectErr  error

	wages    []transform.WageRecord
	expenses []transform.ExpenseRecord
	rejects  map[string][]transform.Reject

	endStatus string
	endCounts load.RunCounts
	endErrMsg string
	ended     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rejects: make(map[string][]transform.Reject)}
}

func (s *fakeStore) StartRun(ctx context.Context, stateFIPS string) (int, error) {
	if s.startErr != nil {
		return 0, s.startErr
	}
	return 42, nil
}

func (s *fakeStore) EndRun(ctx context.Context, runID int, status string, counts load.RunCounts, errMsg string) error {
	s.ended = true
	s.endStatus = status
	s.endCounts = counts
	s.endErrMsg = errMsg
	return nil
}

func (s *fakeStore) BulkUpsertWages(ctx context.Context, records []transform.WageRecord, runID int) (int, error) {
	if s.wageErr != nil {
		return 0, s.wageErr
	}
	s.wages = append(s.wages, records...)
	return len(records), nil
}

func (s *fakeStore) BulkUpsertExpenses(ctx context.Context, records []transform.ExpenseRecord, runID int) (int, error) {
	if s.expenseErr != nil {
		return 0, s.expenseErr
	}
	s.expenses = append(s.expenses, records...)
	return len(records), nil
}

func (s *fakeStore) LoadRejects(ctx context.Context, rejects []transform.Reject, runID int, table string) (int, error) {
	if s.rejectErr != nil {
		return 0, s.rejectErr
	}
	s.rejects[table] = append(s.rejects[table], rejects...)
	return len(rejects), nil
}

type sliceSource struct {
	results []scraper.ScrapeResult
	pos     int
}

func (s *sliceSource) Next() (scraper.ScrapeResult, bool) {
	if s.pos >= len(s.results) {
		return scraper.ScrapeResult{}, false
	}
	r := s.results[s.pos]
	s.pos++
	return r, true
}

func goodResult(fips string) scraper.ScrapeResult {
	return scraper.ScrapeResult{
		FIPSCode: fips,
		Success:  true,
		WagesRows: []scraper.RawRow{
			{"category": "Living Wage", "county_fips": fips[2:], "1 Adult": "$20.00"},
		},
		ExpensesRows: []scraper.RawRow{
			{"category": "Food", "county_fips": fips[2:], "1 Adult": "$4,000"},
		},
	}
}

func newTestPipeline(store Store, opts Options) (*Pipeline, *[]time.Duration) {
	p := New(store, opts)
	var sleeps []time.Duration
	p.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	p.randf = func() float64 { return 0.5 }
	return p, &sleeps
}

func TestProcessStateSuccess(t *testing.T) {
	store := newFakeStore()
	p, _ := newTestPipeline(store, Options{})

	source := &sliceSource{results: []scraper.ScrapeResult{goodResult("01001"), goodResult("01003")}}

	summary, err := p.ProcessState(context.Background(), "01", source)
	require.NoError(t, err)

	assert.Equal(t, 42, summary.RunID)
	assert.Equal(t, load.StatusSuccess, summary.Status)
	assert.Equal(t, 2, summary.Counties)
	assert.Equal(t, 2, summary.CountiesSucceeded)
	assert.Equal(t, 1.0, summary.SuccessRate)
	assert.Equal(t, 2, summary.WagesLoaded)
	assert.Equal(t, 2, summary.ExpensesLoaded)
	assert.Zero(t, summary.WagesRejected)

	require.True(t, store.ended)
	assert.Equal(t, load.StatusSuccess, store.endStatus)
	assert.Empty(t, store.endErrMsg)
}

func TestProcessStateScrapeFailureLoggedNotFatal(t *testing.T) {
	store := newFakeStore()
	p, _ := newTestPipeline(store, Options{})

	source := &sliceSource{results: []scraper.ScrapeResult{
		goodResult("01001"),
		{FIPSCode: "01003", Success: false, Error: "boom"},
	}}

	summary, err := p.ProcessState(context.Background(), "01", source)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Counties)
	assert.Equal(t, 1, summary.CountiesSucceeded)
	assert.Equal(t, 0.5, summary.SuccessRate)
	assert.Equal(t, load.StatusSuccess, summary.Status)
}

func TestProcessStateWideValidationDivertsToRejects(t *testing.T) {
	store := newFakeStore()
	p, _ := newTestPipeline(store, Options{})

	bad := goodResult("01003")
	bad.WagesRows = []scraper.RawRow{{"1 Adult": "$20.00"}} // no category column

	source := &sliceSource{results: []scraper.ScrapeResult{goodResult("01001"), bad}}

	summary, err := p.ProcessState(context.Background(), "01", source)
	require.NoError(t, err)

	assert.Equal(t, load.StatusPartial, summary.Status)
	assert.Equal(t, 1, summary.WagesRejected)
	require.Len(t, store.rejects[load.RejectTableWages], 1)
	assert.Contains(t, store.rejects[load.RejectTableWages][0].Reason, "category")
}

func TestProcessStateNothingLoadedIsFailed(t *testing.T) {
	store := newFakeStore()
	p, _ := newTestPipeline(store, Options{})

	source := &sliceSource{results: []scraper.ScrapeResult{
		{FIPSCode: "01001", Success: false, Error: "timeout"},
	}}

	summary, err := p.ProcessState(context.Background(), "01", source)
	require.NoError(t, err)

	assert.Equal(t, load.StatusFailed, summary.Status)
	assert.Zero(t, summary.WagesLoaded)
}

func TestProcessStateStoreFailureFinalizesFailedRun(t *testing.T) {
	store := newFakeStore()
	store.wageErr = errors.New("connection reset")
	p, _ := newTestPipeline(store, Options{})

	source := &sliceSource{results: []scraper.ScrapeResult{goodResult("01001")}}

	_, err := p.ProcessState(context.Background(), "01", source)
	require.Error(t, err)
	assert.ErrorContains(t, err, "wage load failed")

	require.True(t, store.ended)
	assert.Equal(t, load.StatusFailed, store.endStatus)
	assert.Contains(t, store.endErrMsg, "connection reset")
}

func TestProcessStateStartRunFailure(t *testing.T) {
	store := newFakeStore()
	store.startErr = errors.New("no database")
	p, _ := newTestPipeline(store, Options{})

	_, err := p.ProcessState(context.Background(), "01", &sliceSource{})
	require.Error(t, err)
	assert.False(t, store.ended)
}

func TestPolitenessDelayBounds(t *testing.T) {
	store := newFakeStore()
	p, sleeps := newTestPipeline(store, Options{
		MinDelay: 2 * time.Second,
		MaxDelay: 4 * time.Second,
	})

	source := &sliceSource{results: []scraper.ScrapeResult{goodResult("01001"), goodResult("01003")}}

	_, err := p.ProcessState(context.Background(), "01", source)
	require.NoError(t, err)

	require.Len(t, *sleeps, 2)
	for _, d := range *sleeps {
		assert.Equal(t, 3*time.Second, d)
	}
}

func TestPolitenessDelayDisabledWhenUnset(t *testing.T) {
	store := newFakeStore()
	p, sleeps := newTestPipeline(store, Options{})

	source := &sliceSource{results: []scraper.ScrapeResult{goodResult("01001")}}

	_, err := p.ProcessState(context.Background(), "01", source)
	require.NoError(t, err)
	assert.Empty(t, *sleeps)
}

func TestProcessStateLowSuccessRateWarnsButSucceeds(t *testing.T) {
	store := newFakeStore()
	p, _ := newTestPipeline(store, Options{MinSuccessRate: 0.9})

	source := &sliceSource{results: []scraper.ScrapeResult{
		goodResult("01001"),
		{FIPSCode: "01003", Success: false, Error: "boom"},
	}}

	summary, err := p.ProcessState(context.Background(), "01", source)
	require.NoError(t, err)
	assert.Equal(t, 0.5, summary.SuccessRate)
}

func TestDecideStatus(t *testing.T) {
	tests := []struct {
		name   string
		counts load.RunCounts
		want   string
	}{
		{"nothing loaded", load.RunCounts{}, load.StatusFailed},
		{"loads with rejects", load.RunCounts{WagesLoaded: 5, WagesRejected: 1}, load.StatusPartial},
		{"clean load", load.RunCounts{WagesLoaded: 5, ExpensesLoaded: 9}, load.StatusSuccess},
		{"only rejects", load.RunCounts{WagesRejected: 3}, load.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decideStatus(tt.counts))
		})
	}
}
