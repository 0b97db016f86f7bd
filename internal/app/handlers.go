package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// maxToolBudget caps the budget a tool caller may request.
const maxToolBudget = 5 * time.Minute

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Folio Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.Version, common.Build, common.GitCommit)
		return textResult(result), nil
	}
}

// parseDateArg reads an optional YYYY-MM-DD argument.
func parseDateArg(request mcp.CallToolRequest) (*time.Time, error) {
	raw := strings.TrimSpace(request.GetString("date", ""))
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// handleResolvePrice implements the resolve_price tool
func handleResolvePrice(resolver interfaces.PriceResolver, defaultUser string, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || strings.TrimSpace(ticker) == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}
		date, err := parseDateArg(request)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: invalid date: %v", err)), nil
		}
		req, err := models.NewPriceRequest(strings.TrimSpace(ticker), date)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		userID := request.GetString("user_id", defaultUser)
		quote := resolver.Resolve(ctx, req, userID)

		logger.Debug().Str("ticker", req.Ticker()).Str("source", string(quote.Source())).Msg("MCP resolve_price")
		return textResult(formatQuote(req, quote)), nil
	}
}

// handleResolvePrices implements the resolve_prices tool
func handleResolvePrices(batch interfaces.BatchResolver, defaultBudget time.Duration, defaultUser string, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tickers := request.GetStringSlice("tickers", nil)
		if len(tickers) == 0 {
			return errorResult("Error: tickers parameter is required"), nil
		}
		date, err := parseDateArg(request)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: invalid date: %v", err)), nil
		}

		requests := make([]models.PriceRequest, 0, len(tickers))
		for _, t := range tickers {
			req, err := models.NewPriceRequest(strings.TrimSpace(t), date)
			if err != nil {
				return errorResult(fmt.Sprintf("Error: ticker %q: %v", t, err)), nil
			}
			requests = append(requests, req)
		}

		budget := defaultBudget
		if secs := request.GetFloat("budget_seconds", 0); secs > 0 {
			budget = time.Duration(secs * float64(time.Second))
		}
		if budget > maxToolBudget {
			budget = maxToolBudget
		}

		userID := request.GetString("user_id", defaultUser)
		result := batch.ResolveBatch(ctx, requests, userID, budget)

		logger.Info().
			Int("requested", len(requests)).
			Int("resolved", result.Resolved()).
			Msg("MCP resolve_prices")
		return textResult(formatBatch(requests, result)), nil
	}
}

// handleClassifyTicker implements the classify_ticker tool
func handleClassifyTicker(defaults instrument.Defaults) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || strings.TrimSpace(ticker) == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}
		return textResult(formatClassification(instrument.Describe(strings.TrimSpace(ticker), defaults))), nil
	}
}

// handleGetValuation implements the get_valuation tool
func handleGetValuation(valuationService interfaces.ValuationService, defaultUser string, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID := request.GetString("user_id", defaultUser)

		v, err := valuationService.GetValuation(ctx, userID)
		if err != nil {
			logger.Error().Err(err).Str("user_id", userID).Msg("Valuation failed")
			return errorResult(fmt.Sprintf("Valuation error: %v", err)), nil
		}

		if strings.EqualFold(request.GetString("format", "markdown"), "json") {
			return jsonResult(v)
		}
		return textResult(formatValuation(v)), nil
	}
}

// handleRefreshStockData implements the refresh_stock_data tool
func handleRefreshStockData(stockData interfaces.StockDataService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := stockData.Refresh(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Stock data refresh failed")
			return errorResult(fmt.Sprintf("Refresh error: %v", err)), nil
		}
		return textResult(formatRefreshReport(report)), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Encoding error: %v", err)), nil
	}
	return textResult(string(data)), nil
}
