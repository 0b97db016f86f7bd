package mfapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
)

const schemeBody = `{
	"meta": {
		"fund_house": "Tata Mutual Fund",
		"scheme_type": "Open Ended Schemes",
		"scheme_category": "Equity Scheme - Large Cap Fund",
		"scheme_code": 120828,
		"scheme_name": "Tata Large Cap Fund - Direct Plan - Growth"
	},
	"data": [
		{"date": "19-01-2024", "nav": "412.50310"},
		{"date": "16-01-2024", "nav": "409.10000"},
		{"date": "12-01-2024", "nav": "405.77700"},
		{"date": "garbage", "nav": "1"},
		{"date": "11-01-2024", "nav": "N.A."}
	],
	"status": "SUCCESS"
}`

const latestBody = `{
	"meta": {"scheme_code": 120828, "scheme_name": "Tata Large Cap Fund - Direct Plan - Growth", "scheme_category": "Equity Scheme - Large Cap Fund"},
	"data": [{"date": "31-05-2024", "nav": "455.12340"}],
	"status": "SUCCESS"
}`

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetScheme_ParsesMetaAndNAVs(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/mf/120828": schemeBody})
	client := NewClient(WithBaseURL(srv.URL + "/"))

	s, err := client.GetScheme(context.Background(), "120828")
	require.NoError(t, err)

	assert.Equal(t, "120828", s.Code)
	assert.Equal(t, "Equity Scheme - Large Cap Fund", s.Category)
	require.Len(t, s.NAVs, 3, "unparseable rows are skipped")
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC), latest.Date)
	assert.True(t, latest.NAV.Equal(decimal.RequireFromString("412.5031")))
}

func TestGetScheme_APIError(t *testing.T) {
	srv := newTestServer(t, nil)
	client := NewClient(WithBaseURL(srv.URL))

	_, err := client.GetScheme(context.Background(), "999999")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "/mf/999999", apiErr.Endpoint)
}

func TestAdapter_FetchCurrent(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/mf/120828/latest": latestBody})
	a := NewAdapter(NewClient(WithBaseURL(srv.URL)), common.NewSilentLogger())

	p := a.FetchCurrent(context.Background(), "MF_120828")

	require.NotNil(t, p)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("455.1234")))
	assert.Equal(t, "2024-05-31", p.AsOf.Format("2006-01-02"))
	assert.Equal(t, ProviderName, p.Provider)
	assert.Equal(t, "Tata Large Cap Fund - Direct Plan - Growth", p.Name)
}

func TestAdapter_FetchHistoricalNearest(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/mf/120828": schemeBody})
	a := NewAdapter(NewClient(WithBaseURL(srv.URL)), common.NewSilentLogger())

	p := a.FetchHistorical(context.Background(), "120828", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, p)
	assert.Equal(t, "2024-01-16", p.AsOf.Format("2006-01-02"))
	assert.True(t, p.Price.Equal(decimal.RequireFromString("409.1")))
}

func TestNearestNAV_SkipsNonPositive(t *testing.T) {
	navs := []NAV{
		{Date: time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), NAV: decimal.RequireFromString("61.2")},
		{Date: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), NAV: decimal.Zero},
	}

	nav, ok := nearestNAV(navs, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "2024-01-17", nav.Date.Format("2006-01-02"))

	_, ok = nearestNAV(navs[1:], time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestAdapter_FetchHistoricalFallsBackToLatest(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/mf/120828":        `{"meta":{},"data":[],"status":"SUCCESS"}`,
		"/mf/120828/latest": latestBody,
	})
	a := NewAdapter(NewClient(WithBaseURL(srv.URL)), common.NewSilentLogger())

	p := a.FetchHistorical(context.Background(), "120828", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, p)
	assert.Equal(t, "2024-05-31", p.AsOf.Format("2006-01-02"), "latest NAV keeps its own date")
}

func TestAdapter_NoSchemeCode(t *testing.T) {
	a := NewAdapter(NewClient(WithBaseURL("http://127.0.0.1:1")), common.NewSilentLogger())
	assert.Nil(t, a.FetchCurrent(context.Background(), "AXISBLUECHIPFUND"))
	assert.Equal(t, "", a.FetchSector(context.Background(), "AXISBLUECHIPFUND"))
	assert.Nil(t, a.FetchMarketCap(context.Background(), "MF_120828"))
}

func TestAdapter_FetchSector(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/mf/120828/latest": latestBody})
	a := NewAdapter(NewClient(WithBaseURL(srv.URL)), common.NewSilentLogger())

	assert.Equal(t, "Equity Scheme - Large Cap Fund", a.FetchSector(context.Background(), "MF_120828"))
}
