package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/models"
)

var testDay = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

// mockResolver prices every equity at 2500 and every fund at 45.5.
type mockResolver struct {
	mu    sync.Mutex
	users []string
}

func (m *mockResolver) Resolve(_ context.Context, req models.PriceRequest, userID string) *models.PriceQuote {
	m.mu.Lock()
	m.users = append(m.users, userID)
	m.mu.Unlock()

	asOf := testDay
	if d, ok := req.AsOf(); ok {
		asOf = d
	}
	if instrument.IsMutualFund(req.Ticker()) {
		return models.MustPriceQuote(decimal.RequireFromString("45.5"), asOf, models.SourceProviderPrimary, 0, "mfapi")
	}
	return models.MustPriceQuote(decimal.NewFromInt(2500), asOf, models.SourceProviderPrimary, 0, "eodhd")
}

// mockBatch resolves through a mockResolver but leaves tickers in skip unresolved.
type mockBatch struct {
	resolver *mockResolver
	skip     map[string]bool
	budget   time.Duration
}

func (m *mockBatch) ResolveBatch(ctx context.Context, requests []models.PriceRequest, userID string, budget time.Duration) models.BatchResult {
	m.budget = budget
	out := make(models.BatchResult, len(requests))
	for _, req := range requests {
		if m.skip[req.Ticker()] {
			out[req] = nil
			continue
		}
		out[req] = m.resolver.Resolve(ctx, req, userID)
	}
	return out
}

type mockStockData struct {
	report   *models.RefreshReport
	stats    *models.InstrumentStats
	err      error
	refreshs int
	mu       sync.Mutex
}

func (m *mockStockData) Refresh(context.Context) (*models.RefreshReport, error) {
	m.mu.Lock()
	m.refreshs++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockStockData) Stats(context.Context) (*models.InstrumentStats, error) {
	if m.stats == nil {
		return &models.InstrumentStats{}, nil
	}
	return m.stats, nil
}

func (m *mockStockData) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshs
}

type mockValuation struct {
	valuation *models.Valuation
	err       error
	userID    string
}

func (m *mockValuation) GetValuation(_ context.Context, userID string) (*models.Valuation, error) {
	m.userID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.valuation, nil
}

type mockImporter struct {
	mu    sync.Mutex
	users []string
}

func (m *mockImporter) Import(context.Context, string, string, io.Reader) (*models.ImportResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockImporter) ImportInbox(_ context.Context, userID string) ([]*models.ImportResult, error) {
	m.mu.Lock()
	m.users = append(m.users, userID)
	m.mu.Unlock()
	return nil, nil
}

// testHarness provides an in-process MCP client connected to a Folio MCP
// server with mock services.
type testHarness struct {
	t         *testing.T
	client    *client.Client
	resolver  *mockResolver
	batch     *mockBatch
	stockData *mockStockData
	valuation *mockValuation
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	logger := common.NewSilentLogger()
	resolver := &mockResolver{}
	h := &testHarness{
		t:         t,
		resolver:  resolver,
		batch:     &mockBatch{resolver: resolver, skip: map[string]bool{}},
		stockData: &mockStockData{report: &models.RefreshReport{Funds: 2, Equities: 3, Updated: 4, Failed: 1}},
		valuation: &mockValuation{},
	}

	mcpServer := server.NewMCPServer("folio-test", "test", server.WithToolCapabilities(true))
	mcpServer.AddTool(createGetVersionTool(), handleGetVersion())
	mcpServer.AddTool(createResolvePriceTool(), handleResolvePrice(h.resolver, "default", logger))
	mcpServer.AddTool(createResolvePricesTool(), handleResolvePrices(h.batch, 90*time.Second, "default", logger))
	mcpServer.AddTool(createClassifyTickerTool(), handleClassifyTicker(instrument.StandardDefaults))
	mcpServer.AddTool(createGetValuationTool(), handleGetValuation(h.valuation, "default", logger))
	mcpServer.AddTool(createRefreshStockDataTool(), handleRefreshStockData(h.stockData, logger))

	c, err := client.NewInProcessClient(mcpServer)
	if err != nil {
		t.Fatalf("Failed to create in-process client: %v", err)
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Failed to start client: %v", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "folio-test-client",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		t.Fatalf("Failed to initialize MCP: %v", err)
	}

	h.client = c
	t.Cleanup(func() { c.Close() })
	return h
}

// callTool invokes an MCP tool by name with the given arguments.
func (h *testHarness) callTool(name string, args map[string]any) *mcp.CallToolResult {
	h.t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := h.client.CallTool(context.Background(), req)
	if err != nil {
		h.t.Fatalf("CallTool(%s) failed: %v", name, err)
	}
	return result
}

// text extracts the first text content block.
func (h *testHarness) text(result *mcp.CallToolResult) string {
	h.t.Helper()
	if len(result.Content) == 0 {
		h.t.Fatalf("result has no content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		h.t.Fatalf("Content[0] is %T, not TextContent", result.Content[0])
	}
	return tc.Text
}
