package instrument

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// fundBand maps a scheme code range to a fund house and its typical NAV.
type fundBand struct {
	lower, upper int
	house        string
	price        int64
}

// fundBands holds rough NAV tiers per fund family code range, inclusive.
var fundBands = []fundBand{
	{120000, 129999, "Tata", 50},
	{130000, 139999, "HDFC", 100},
	{140000, 149999, "ICICI Prudential", 75},
	{150000, 159999, "SBI", 80},
	{160000, 169999, "Axis", 90},
	{170000, 179999, "Kotak", 85},
	{180000, 189999, "Aditya Birla Sun Life", 70},
	{190000, 199999, "DSP", 60},
	{200000, 209999, "Franklin Templeton", 55},
	{210000, 219999, "Mirae Asset", 65},
	{220000, 229999, "PGIM", 45},
	{230000, 239999, "Nippon India", 40},
	{240000, 249999, "UTI", 35},
	{250000, 259999, "L&T", 50},
	{260000, 269999, "Invesco", 30},
	{270000, 279999, "Edelweiss", 25},
	{280000, 289999, "Motilal Oswal", 20},
	{290000, 299999, "Sundaram", 15},
	{300000, 309999, "Quantum", 10},
	{310000, 319999, "PPFAS", 12},
	{320000, 329999, "WhiteOak", 18},
	{330000, 339999, "Navi", 22},
	{340000, 349999, "Groww", 28},
	{350000, 359999, "Upstox", 32},
	{360000, 369999, "Zerodha", 38},
	{370000, 379999, "Angel One", 42},
	{380000, 389999, "5Paisa", 48},
	{390000, 399999, "Samco", 52},
	{400000, 409999, "Finvasia", 58},
	{410000, 419999, "IIFL", 62},
	{420000, 429999, "Religare", 68},
	{430000, 439999, "JM Financial", 72},
	{440000, 449999, "Canara Robeco", 78},
	{450000, 459999, "Union", 82},
	{460000, 469999, "Bank of India", 88},
	{470000, 479999, "PNB", 92},
	{480000, 489999, "IDBI", 96},
	{490000, 499999, "IOB", 98},
}

// Defaults produces deterministic last-resort prices.
type Defaults struct {
	Equity decimal.Decimal // every equity
	Fund   decimal.Decimal // funds outside all bands or without a scheme code
}

// StandardDefaults are the built-in fallback constants.
var StandardDefaults = Defaults{
	Equity: decimal.NewFromInt(1000),
	Fund:   decimal.NewFromInt(100),
}

// NewDefaults builds Defaults from configured values, keeping the standard
// constant for any non-positive input.
func NewDefaults(equity, fund float64) Defaults {
	d := StandardDefaults
	if equity > 0 {
		d.Equity = decimal.NewFromFloat(equity)
	}
	if fund > 0 {
		d.Fund = decimal.NewFromFloat(fund)
	}
	return d
}

// Price returns the synthetic price for a ticker. It never fails and the
// same ticker always maps to the same price.
func (d Defaults) Price(ticker string) decimal.Decimal {
	if Classify(ticker) == models.KindEquity {
		return d.Equity
	}
	code, ok := SchemeCode(ticker)
	if !ok {
		return d.Fund
	}
	if band, ok := lookupBand(code); ok {
		return decimal.NewFromInt(band.price)
	}
	return d.Fund
}

// DefaultPrice is StandardDefaults.Price.
func DefaultPrice(ticker string) decimal.Decimal {
	return StandardDefaults.Price(ticker)
}

// FundHouse names the fund family a scheme code band belongs to.
func FundHouse(ticker string) (string, bool) {
	code, ok := SchemeCode(ticker)
	if !ok {
		return "", false
	}
	band, ok := lookupBand(code)
	if !ok {
		return "", false
	}
	return band.house, true
}

func lookupBand(code string) (fundBand, bool) {
	n, err := strconv.Atoi(code)
	if err != nil {
		return fundBand{}, false
	}
	for _, b := range fundBands {
		if n >= b.lower && n <= b.upper {
			return b, true
		}
	}
	return fundBand{}, false
}
