package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentKind distinguishes equities from mutual fund schemes.
type InstrumentKind string

const (
	KindEquity     InstrumentKind = "equity"
	KindMutualFund InstrumentKind = "mutual_fund"
)

// SectorMutualFunds is the sector recorded for funds without a category.
const SectorMutualFunds = "Mutual Funds"

// CachedInstrument is a row of the stock_data table: the last known name,
// sector and price of a ticker.
type CachedInstrument struct {
	Ticker      string           `json:"ticker"`
	Kind        InstrumentKind   `json:"kind"`
	Name        string           `json:"name,omitempty"`
	Sector      string           `json:"sector,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	MarketCap   *decimal.Decimal `json:"market_cap,omitempty"`
	PriceSource PriceSource      `json:"price_source,omitempty"`
	PriceAsOf   time.Time        `json:"price_as_of,omitempty"`
	LastUpdated time.Time        `json:"last_updated"`
}

// Merge overlays the non-empty fields of next onto c. A price replaces the
// stored one only when it is at least as recent. LastUpdated always advances.
func (c *CachedInstrument) Merge(next *CachedInstrument) {
	if next.Kind != "" {
		c.Kind = next.Kind
	}
	if next.Name != "" {
		c.Name = next.Name
	}
	if next.Sector != "" {
		c.Sector = next.Sector
	}
	if next.Price != nil && !next.PriceAsOf.Before(c.PriceAsOf) {
		c.Price = next.Price
		c.PriceSource = next.PriceSource
		c.PriceAsOf = next.PriceAsOf
	}
	if next.MarketCap != nil {
		c.MarketCap = next.MarketCap
	}
	if next.LastUpdated.After(c.LastUpdated) {
		c.LastUpdated = next.LastUpdated
	}
}

// InstrumentStats summarises the instrument cache.
type InstrumentStats struct {
	TotalInstruments int       `json:"total_instruments"`
	Funds            int       `json:"funds"`
	Equities         int       `json:"equities"`
	LiveCacheSize    int       `json:"live_cache_size"`
	LastUpdated      time.Time `json:"last_updated,omitempty"`
}

// RefreshReport summarises one stock data refresh run.
type RefreshReport struct {
	Funds          int           `json:"funds"`
	Equities       int           `json:"equities"`
	Updated        int           `json:"updated"`
	Failed         int           `json:"failed"`
	SectorsUpdated int           `json:"sectors_updated"`
	Elapsed        time.Duration `json:"elapsed"`
}
