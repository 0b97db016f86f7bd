package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/importer"
	"github.com/bobmcallan/folio/internal/storage"
)

var testDay = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

// stubResolver prices equities at 2500 and funds at 45.5 and records the
// user of every call.
type stubResolver struct {
	mu    sync.Mutex
	users []string
}

func (s *stubResolver) Resolve(_ context.Context, req models.PriceRequest, userID string) *models.PriceQuote {
	s.mu.Lock()
	s.users = append(s.users, userID)
	s.mu.Unlock()

	asOf := testDay
	if d, ok := req.AsOf(); ok {
		asOf = d
	}
	if instrument.IsMutualFund(req.Ticker()) {
		return models.MustPriceQuote(decimal.RequireFromString("45.5"), asOf, models.SourceProviderPrimary, 0, "mfapi")
	}
	return models.MustPriceQuote(decimal.NewFromInt(2500), asOf, models.SourceProviderPrimary, 0, "eodhd")
}

func (s *stubResolver) lastUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.users) == 0 {
		return ""
	}
	return s.users[len(s.users)-1]
}

// stubBatch leaves tickers in skip unresolved.
type stubBatch struct {
	resolver *stubResolver
	skip     map[string]bool
	budget   time.Duration
}

func (s *stubBatch) ResolveBatch(ctx context.Context, requests []models.PriceRequest, userID string, budget time.Duration) models.BatchResult {
	s.budget = budget
	out := make(models.BatchResult, len(requests))
	for _, req := range requests {
		if s.skip[req.Ticker()] {
			out[req] = nil
			continue
		}
		out[req] = s.resolver.Resolve(ctx, req, userID)
	}
	return out
}

type stubStockData struct {
	report *models.RefreshReport
	stats  *models.InstrumentStats
	err    error
}

func (s *stubStockData) Refresh(context.Context) (*models.RefreshReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubStockData) Stats(context.Context) (*models.InstrumentStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

type stubValuation struct {
	valuation *models.Valuation
	err       error
	userID    string
}

func (s *stubValuation) GetValuation(_ context.Context, userID string) (*models.Valuation, error) {
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	v := *s.valuation
	v.UserID = userID
	return &v, nil
}

// panicStockData panics on every call.
type panicStockData struct{}

func (panicStockData) Refresh(context.Context) (*models.RefreshReport, error) { panic("boom") }
func (panicStockData) Stats(context.Context) (*models.InstrumentStats, error) { panic("boom") }

type testEnv struct {
	app       *app.App
	handler   http.Handler
	resolver  *stubResolver
	batch     *stubBatch
	stockData *stubStockData
	valuation *stubValuation
}

// newTestEnv builds a server over a temp SQLite store, a real importer and
// stubbed pricing services.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Storage.SQLite.Path = filepath.Join(t.TempDir(), "folio.db")
	logger := common.NewSilentLogger()

	store, err := storage.NewManager(logger, config)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	resolver := &stubResolver{}
	batch := &stubBatch{resolver: resolver, skip: map[string]bool{}}
	stockData := &stubStockData{
		report: &models.RefreshReport{Funds: 1, Equities: 2, Updated: 3},
		stats:  &models.InstrumentStats{TotalInstruments: 3, Funds: 1, Equities: 2},
	}
	valuation := &stubValuation{valuation: &models.Valuation{
		Currency:   "INR",
		TotalValue: decimal.NewFromInt(75000),
		BySector: []models.AllocationSlice{
			{Label: "Information Technology", Value: decimal.NewFromInt(50000), Percent: decimal.RequireFromString("66.67")},
			{Label: "Mutual Funds", Value: decimal.NewFromInt(25000), Percent: decimal.RequireFromString("33.33")},
		},
	}}

	a := &app.App{
		Config:      config,
		Logger:      logger,
		Storage:     store,
		Resolver:    resolver,
		Batch:       batch,
		StockData:   stockData,
		Valuation:   valuation,
		Importer:    importer.NewService(store.TransactionStore(), store.FileStore(), batch, nil, importer.Options{}, logger),
		Defaults:    instrument.NewDefaults(1000, 50),
		StartupTime: time.Now(),
	}

	return &testEnv{
		app:       a,
		handler:   NewServer(a).Handler(),
		resolver:  resolver,
		batch:     batch,
		stockData: stockData,
		valuation: valuation,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return e.do(t, http.MethodGet, path, nil, nil)
}

func (e *testEnv) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	return e.do(t, http.MethodPost, path, bytes.NewBufferString(body), map[string]string{"Content-Type": "application/json"})
}

// upload posts content as the multipart "file" field.
func (e *testEnv) upload(t *testing.T, filename, content, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	headers := map[string]string{"Content-Type": mw.FormDataContentType()}
	if userID != "" {
		headers[UserIDHeader] = userID
	}
	return e.do(t, http.MethodPost, "/api/imports", &buf, headers)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
