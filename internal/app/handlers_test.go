package app

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/models"
)

func TestGetVersionTool(t *testing.T) {
	h := newTestHarness(t)
	result := h.callTool("get_version", nil)
	assert.False(t, result.IsError)
	assert.Contains(t, h.text(result), "Status: OK")
}

func TestResolvePriceTool_Live(t *testing.T) {
	h := newTestHarness(t)
	result := h.callTool("resolve_price", map[string]any{"ticker": "RELIANCE.NS"})
	require.False(t, result.IsError, h.text(result))

	text := h.text(result)
	assert.Contains(t, text, "# RELIANCE.NS")
	assert.Contains(t, text, "₹2,500.00")
	assert.Contains(t, text, "**Requested:** current")
	assert.Contains(t, text, models.ConfidenceLive)
	assert.Equal(t, []string{"default"}, h.resolver.users)
}

func TestResolvePriceTool_HistoricalWithUser(t *testing.T) {
	h := newTestHarness(t)
	result := h.callTool("resolve_price", map[string]any{
		"ticker":  "MF_120503",
		"date":    "2023-06-30",
		"user_id": "alice",
	})
	require.False(t, result.IsError, h.text(result))
	assert.Contains(t, h.text(result), "**Requested:** 2023-06-30")
	assert.Contains(t, h.text(result), "₹45.50")
	assert.Equal(t, []string{"alice"}, h.resolver.users)
}

func TestResolvePriceTool_Validation(t *testing.T) {
	h := newTestHarness(t)

	result := h.callTool("resolve_price", map[string]any{"ticker": "  "})
	assert.True(t, result.IsError)

	result = h.callTool("resolve_price", map[string]any{"ticker": "TCS", "date": "30/06/2023"})
	assert.True(t, result.IsError)
	assert.Contains(t, h.text(result), "invalid date")

	result = h.callTool("resolve_price", map[string]any{"ticker": strings.Repeat("X", 65)})
	assert.True(t, result.IsError)
	assert.Empty(t, h.resolver.users)
}

func TestResolvePricesTool(t *testing.T) {
	h := newTestHarness(t)
	h.batch.skip["SLOWCO"] = true

	result := h.callTool("resolve_prices", map[string]any{
		"tickers":        []any{"TCS", "MF_120503", "SLOWCO", "TCS"},
		"budget_seconds": 12,
	})
	require.False(t, result.IsError, h.text(result))

	text := h.text(result)
	assert.Contains(t, text, "Resolved 2 of 3")
	assert.Contains(t, text, "| SLOWCO | current | - | - | unresolved | - |")
	assert.Equal(t, 1, strings.Count(text, "| TCS |"))
	assert.Equal(t, 12*time.Second, h.batch.budget)
}

func TestResolvePricesTool_BudgetCapped(t *testing.T) {
	h := newTestHarness(t)
	h.callTool("resolve_prices", map[string]any{
		"tickers":        []any{"TCS"},
		"budget_seconds": 3600,
	})
	assert.Equal(t, maxToolBudget, h.batch.budget)

	h.callTool("resolve_prices", map[string]any{"tickers": []any{"TCS"}})
	assert.Equal(t, 90*time.Second, h.batch.budget)
}

func TestResolvePricesTool_RequiresTickers(t *testing.T) {
	h := newTestHarness(t)
	result := h.callTool("resolve_prices", map[string]any{"tickers": []any{}})
	assert.True(t, result.IsError)
}

func TestClassifyTickerTool(t *testing.T) {
	h := newTestHarness(t)

	text := h.text(h.callTool("classify_ticker", map[string]any{"ticker": "MF_120828"}))
	assert.Contains(t, text, "**Kind:** mutual_fund")
	assert.Contains(t, text, "**Scheme Code:** 120828")
	assert.Contains(t, text, "**Fund House:** Tata")
	assert.Contains(t, text, "₹50.00")

	text = h.text(h.callTool("classify_ticker", map[string]any{"ticker": "hdfcbank.ns"}))
	assert.Contains(t, text, "**Normalized:** HDFCBANK")
	assert.Contains(t, text, "**Kind:** equity")
	assert.Contains(t, text, "**Sector:** Banking")
}

func testValuation() *models.Valuation {
	price := models.MustPriceQuote(decimal.NewFromInt(3500), testDay, models.SourceProviderPrimary, 0, "eodhd")
	return &models.Valuation{
		UserID:            "alice",
		Currency:          "INR",
		TotalInvested:     decimal.NewFromInt(30000),
		TotalValue:        decimal.NewFromInt(35000),
		TotalPnL:          decimal.NewFromInt(5000),
		TotalPnLPercent:   decimal.RequireFromString("16.67"),
		DisplayTotalValue: "₹35,000.00",
		DisplayTotalPnL:   "+₹5,000.00",
		Holdings: []models.Holding{{
			Ticker:       "TCS",
			Kind:         models.KindEquity,
			Quantity:     decimal.NewFromInt(10),
			Invested:     decimal.NewFromInt(30000),
			AverageCost:  decimal.NewFromInt(3000),
			CurrentPrice: price,
			CurrentValue: decimal.NewFromInt(35000),
			PnL:          decimal.NewFromInt(5000),
			PnLPercent:   decimal.RequireFromString("16.67"),
			Confidence:   models.ConfidenceLive,
			DisplayValue: "₹35,000.00",
			DisplayPnL:   "+₹5,000.00",
		}},
		BySector: []models.AllocationSlice{{Label: "Technology", Value: decimal.NewFromInt(35000), Percent: decimal.NewFromInt(100)}},
		GeneratedAt: testDay,
	}
}

func TestGetValuationTool_Markdown(t *testing.T) {
	h := newTestHarness(t)
	h.valuation.valuation = testValuation()

	result := h.callTool("get_valuation", map[string]any{"user_id": "alice"})
	require.False(t, result.IsError, h.text(result))

	text := h.text(result)
	assert.Contains(t, text, "# Valuation: alice")
	assert.Contains(t, text, "**Total P&L:** +₹5,000.00 (16.67%)")
	assert.Contains(t, text, "| TCS | 10 | ₹3,000.00 | ₹3,500.00 | ₹35,000.00 | +₹5,000.00 | 16.67% | live market price |")
	assert.Contains(t, text, "## By Sector")
	assert.NotContains(t, text, "## By Channel")
	assert.Equal(t, "alice", h.valuation.userID)
}

func TestGetValuationTool_JSON(t *testing.T) {
	h := newTestHarness(t)
	h.valuation.valuation = testValuation()

	result := h.callTool("get_valuation", map[string]any{"format": "json"})
	require.False(t, result.IsError)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(h.text(result)), &decoded))
	assert.Equal(t, "₹35,000.00", decoded["display_total_value"])
	assert.Equal(t, "default", h.valuation.userID)
}

func TestGetValuationTool_Error(t *testing.T) {
	h := newTestHarness(t)
	h.valuation.err = errors.New("storage offline")

	result := h.callTool("get_valuation", nil)
	assert.True(t, result.IsError)
	assert.Contains(t, h.text(result), "storage offline")
}

func TestRefreshStockDataTool(t *testing.T) {
	h := newTestHarness(t)

	text := h.text(h.callTool("refresh_stock_data", nil))
	assert.Contains(t, text, "**Funds:** 2")
	assert.Contains(t, text, "**Updated from providers:** 4")
	assert.Equal(t, 1, h.stockData.refreshCount())

	h.stockData.err = errors.New("context canceled")
	result := h.callTool("refresh_stock_data", nil)
	assert.True(t, result.IsError)
}
