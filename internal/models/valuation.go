package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the aggregated position in one ticker.
type Holding struct {
	Ticker       string          `json:"ticker"`
	Name         string          `json:"name,omitempty"`
	Kind         InstrumentKind  `json:"kind"`
	Sector       string          `json:"sector,omitempty"`
	Channels     []string        `json:"channels,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Invested     decimal.Decimal `json:"invested"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	CurrentPrice *PriceQuote     `json:"current_price,omitempty"`
	CurrentValue decimal.Decimal `json:"current_value"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPercent   decimal.Decimal `json:"pnl_percent"`
	Confidence   string          `json:"confidence"`
	DisplayValue string          `json:"display_value"`
	DisplayPnL   string          `json:"display_pnl"`
	Transactions int             `json:"transactions"`
}

// AllocationSlice is one segment of an allocation breakdown.
type AllocationSlice struct {
	Label   string          `json:"label"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// Valuation is the current value of a user's holdings.
type Valuation struct {
	UserID            string            `json:"user_id"`
	Currency          string            `json:"currency"`
	Holdings          []Holding         `json:"holdings"`
	TotalInvested     decimal.Decimal   `json:"total_invested"`
	TotalValue        decimal.Decimal   `json:"total_value"`
	TotalPnL          decimal.Decimal   `json:"total_pnl"`
	TotalPnLPercent   decimal.Decimal   `json:"total_pnl_percent"`
	DisplayTotalValue string            `json:"display_total_value"`
	DisplayTotalPnL   string            `json:"display_total_pnl"`
	EstimatedHoldings int               `json:"estimated_holdings"`
	BySector          []AllocationSlice `json:"by_sector"`
	ByChannel         []AllocationSlice `json:"by_channel"`
	GeneratedAt       time.Time         `json:"generated_at"`
}
