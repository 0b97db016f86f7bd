package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Folio server version and status. Use this to verify connectivity."),
	)
}

// createResolvePriceTool returns the resolve_price tool definition
func createResolvePriceTool() mcp.Tool {
	return mcp.NewTool("resolve_price",
		mcp.WithDescription("Resolve the price of one Indian equity or mutual fund. Always returns a price; the source and confidence say how reliable it is."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("NSE/BSE ticker (e.g., 'RELIANCE', 'TCS.NS') or fund scheme (e.g., 'MF_120503', '120503')"),
		),
		mcp.WithString("date",
			mcp.Description("Historical date YYYY-MM-DD. Omit for the current price."),
		),
		mcp.WithString("user_id",
			mcp.Description("User whose transaction history may be used as a price source (default: configured default user)"),
		),
	)
}

// createResolvePricesTool returns the resolve_prices tool definition
func createResolvePricesTool() mcp.Tool {
	return mcp.NewTool("resolve_prices",
		mcp.WithDescription("Resolve many prices in one call within a time budget. Tickers missing from the result could not be priced in time."),
		mcp.WithArray("tickers",
			mcp.WithStringItems(),
			mcp.Required(),
			mcp.Description("Tickers to price (e.g., ['RELIANCE', 'MF_120503'])"),
		),
		mcp.WithString("date",
			mcp.Description("Historical date YYYY-MM-DD applied to every ticker. Omit for current prices."),
		),
		mcp.WithNumber("budget_seconds",
			mcp.Description("Wall-clock budget in seconds (default: configured batch budget)"),
		),
		mcp.WithString("user_id",
			mcp.Description("User whose transaction history may be used as a price source"),
		),
	)
}

// createClassifyTickerTool returns the classify_ticker tool definition
func createClassifyTickerTool() mcp.Tool {
	return mcp.NewTool("classify_ticker",
		mcp.WithDescription("Classify a ticker as equity or mutual fund and show its scheme code, fund house, guessed sector and default price. No network access."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Ticker to classify"),
		),
	)
}

// createGetValuationTool returns the get_valuation tool definition
func createGetValuationTool() mcp.Tool {
	return mcp.NewTool("get_valuation",
		mcp.WithDescription("Value a user's holdings at current prices with profit/loss and sector and channel allocation."),
		mcp.WithString("user_id",
			mcp.Description("User to value (default: configured default user)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'markdown' (default) or 'json'"),
		),
	)
}

// createRefreshStockDataTool returns the refresh_stock_data tool definition
func createRefreshStockDataTool() mcp.Tool {
	return mcp.NewTool("refresh_stock_data",
		mcp.WithDescription("Refresh cached price, sector and market cap for every held ticker. Funds are refreshed before equities. Can take several minutes."),
	)
}
