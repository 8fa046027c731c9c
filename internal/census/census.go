// Package census provides a client for county and state enumeration from the
// Census Bureau API.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/wage-etl/internal/httpclient"
)

// County identifies one county. FIPS codes are always zero-padded: 2 digits
// for the state, 3 for the county, 5 combined.
type County struct {
	CountyName string
	StateFIPS  string
	CountyFIPS string
	FullFIPS   string
}

// State identifies one state. StateAbbr is filled by the caller from the
// static FIPS table; the API response carries only name and code.
type State struct {
	StateName string
	StateFIPS string
	StateAbbr string
}

// Client fetches geography data from the Census API. Responses are
// array-of-arrays JSON with a header row.
type Client struct {
	http *httpclient.Client
}

// New creates a census client on top of an HTTP client whose base URL points
// at the Census API endpoint.
func New(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// Close releases the underlying HTTP session.
func (c *Client) Close() {
	c.http.Close()
}

// RequestCount returns the number of network requests made so far.
func (c *Client) RequestCount() int {
	return c.http.RequestCount()
}

func (c *Client) get(ctx context.Context, params map[string]string) ([][]string, error) {
	content, err := c.http.Get(ctx, "", params)
	if err != nil {
		return nil, err
	}

	var data [][]string
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse census response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty census response")
	}
	return data, nil
}

// zeroPad left-pads a numeric code to the given width.
func zeroPad(code string, width int) string {
	if len(code) >= width {
		return code
	}
	return strings.Repeat("0", width-len(code)) + code
}

// parseCounties converts data rows [name, state_fips, county_fips] into
// County values sorted by full FIPS ascending.
func parseCounties(data [][]string) ([]County, error) {
	counties := make([]County, 0, len(data)-1)
	for _, row := range data[1:] {
		if len(row) < 3 {
			return nil, fmt.Errorf("malformed county row: %v", row)
		}
		name := strings.TrimSpace(strings.SplitN(row[0], ",", 2)[0])
		stateFIPS := zeroPad(row[1], 2)
		countyFIPS := zeroPad(row[2], 3)
		counties = append(counties, County{
			CountyName: name,
			StateFIPS:  stateFIPS,
			CountyFIPS: countyFIPS,
			FullFIPS:   stateFIPS + countyFIPS,
		})
	}
	sort.Slice(counties, func(i, j int) bool {
		return counties[i].FullFIPS < counties[j].FullFIPS
	})
	return counties, nil
}

// GetCounties returns all counties for a state.
func (c *Client) GetCounties(ctx context.Context, stateFIPS string) ([]County, error) {
	data, err := c.get(ctx, map[string]string{
		"get": "NAME",
		"for": "county:*",
		"in":  fmt.Sprintf("state:%s", stateFIPS),
	})
	if err != nil {
		return nil, err
	}
	return parseCounties(data)
}

// GetAllCounties returns every county nationwide.
func (c *Client) GetAllCounties(ctx context.Context) ([]County, error) {
	data, err := c.get(ctx, map[string]string{
		"get": "NAME",
		"for": "county:*",
		"in":  "state:*",
	})
	if err != nil {
		return nil, err
	}
	return parseCounties(data)
}

// GetCountyCodes returns just the 3-digit county FIPS codes for a state.
func (c *Client) GetCountyCodes(ctx context.Context, stateFIPS string) ([]string, error) {
	counties, err := c.GetCounties(ctx, stateFIPS)
	if err != nil {
		return nil, err
	}
	codes := make([]string, len(counties))
	for i, county := range counties {
		codes[i] = county.CountyFIPS
	}
	return codes, nil
}

// GetStates returns all US states.
func (c *Client) GetStates(ctx context.Context) ([]State, error) {
	data, err := c.get(ctx, map[string]string{
		"get": "NAME",
		"for": "state:*",
	})
	if err != nil {
		return nil, err
	}

	states := make([]State, 0, len(data)-1)
	for _, row := range data[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("malformed state row: %v", row)
		}
		states = append(states, State{
			StateName: row[0],
			StateFIPS: zeroPad(row[1], 2),
		})
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].StateFIPS < states[j].StateFIPS
	})
	return states, nil
}
