package instrument

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// Classification is everything derivable about a ticker without a network call.
type Classification struct {
	Ticker       string                `json:"ticker"`
	Normalized   string                `json:"normalized"`
	Kind         models.InstrumentKind `json:"kind"`
	SchemeCode   string                `json:"scheme_code,omitempty"`
	FundHouse    string                `json:"fund_house,omitempty"`
	Sector       string                `json:"sector"`
	DefaultPrice decimal.Decimal       `json:"default_price"`
}

// Describe classifies a ticker and attaches its offline facts.
func Describe(ticker string, defaults Defaults) Classification {
	c := Classification{
		Ticker:       ticker,
		Normalized:   Normalize(ticker),
		Kind:         Classify(ticker),
		DefaultPrice: defaults.Price(ticker),
	}
	if c.Kind == models.KindMutualFund {
		c.Sector = models.SectorMutualFunds
		if code, ok := SchemeCode(ticker); ok {
			c.SchemeCode = code
		}
		if house, ok := FundHouse(ticker); ok {
			c.FundHouse = house
		}
		return c
	}
	c.Sector = GuessSector(ticker)
	return c
}
