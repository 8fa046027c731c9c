package census

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wage-etl/internal/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(httpclient.New(httpclient.Config{
		BaseURL:    srv.URL,
		MaxRetries: 1,
		Timeout:    5 * time.Second,
	}, nil))
	t.Cleanup(client.Close)
	return client
}

func TestGetCounties(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"get": r.URL.Query().Get("get"),
			"for": r.URL.Query().Get("for"),
			"in":  r.URL.Query().Get("in"),
		}
		_, _ = w.Write([]byte(`[
			["NAME","state","county"],
			["Hudson County, New Jersey","34","17"],
			["Atlantic County, New Jersey","34","1"]
		]`))
	})

	counties, err := client.GetCounties(context.Background(), "34")
	require.NoError(t, err)

	assert.Equal(t, "NAME", gotQuery["get"])
	assert.Equal(t, "county:*", gotQuery["for"])
	assert.Equal(t, "state:34", gotQuery["in"])

	require.Len(t, counties, 2)
	// Zero-padded and sorted by full FIPS.
	assert.Equal(t, County{
		CountyName: "Atlantic County",
		StateFIPS:  "34",
		CountyFIPS: "001",
		FullFIPS:   "34001",
	}, counties[0])
	assert.Equal(t, "34017", counties[1].FullFIPS)
	assert.Equal(t, "Hudson County", counties[1].CountyName)
}

func TestGetCountyCodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			["NAME","state","county"],
			["B County, Somewhere","34","3"],
			["A County, Somewhere","34","1"]
		]`))
	})

	codes, err := client.GetCountyCodes(context.Background(), "34")
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "003"}, codes)
}

func TestGetStates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			["NAME","state"],
			["New Jersey","34"],
			["Alabama","1"]
		]`))
	})

	states, err := client.GetStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, State{StateName: "Alabama", StateFIPS: "01"}, states[0])
	assert.Equal(t, State{StateName: "New Jersey", StateFIPS: "34"}, states[1])
}

func TestGetMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	})

	_, err := client.GetCounties(context.Background(), "34")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse census response")
}

func TestZeroPad(t *testing.T) {
	assert.Equal(t, "01", zeroPad("1", 2))
	assert.Equal(t, "001", zeroPad("1", 3))
	assert.Equal(t, "017", zeroPad("17", 3))
	assert.Equal(t, "34017", zeroPad("34017", 5))
}
