package instrument

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDefaultPrice_FundBands(t *testing.T) {
	tests := []struct {
		ticker string
		want   int64
	}{
		{"MF_120828", 50},
		{"120000", 50},
		{"129999", 50},
		{"130000", 100},
		{"MF_145678", 75},
		{"230001", 40},
		{"499999", 98},
		{"500112", 100}, // beyond the last band
		{"MF_500112", 100},
		{"100000", 100}, // below the first band
		{"SOMEFUND", 100},
	}
	for _, tt := range tests {
		got := DefaultPrice(tt.ticker)
		if !got.Equal(decimal.NewFromInt(tt.want)) {
			t.Errorf("DefaultPrice(%q) = %s, want %d", tt.ticker, got, tt.want)
		}
	}
}

func TestDefaultPrice_Equity(t *testing.T) {
	assert.True(t, DefaultPrice("RELIANCE.NS").Equal(decimal.NewFromInt(1000)))
	assert.True(t, DefaultPrice("").Equal(decimal.NewFromInt(1000)))
}

func TestDefaultPrice_Idempotent(t *testing.T) {
	for _, ticker := range []string{"MF_120828", "RELIANCE", "310500", "HDFC_MF", ""} {
		first := DefaultPrice(ticker)
		second := DefaultPrice(ticker)
		assert.True(t, first.Equal(second), "DefaultPrice(%q) not deterministic", ticker)
		assert.True(t, first.IsPositive(), "DefaultPrice(%q) must be positive", ticker)
	}
}

func TestNewDefaults(t *testing.T) {
	d := NewDefaults(0, -1)
	assert.True(t, d.Equity.Equal(StandardDefaults.Equity))
	assert.True(t, d.Fund.Equal(StandardDefaults.Fund))

	d = NewDefaults(500, 20)
	assert.True(t, d.Price("TCS").Equal(decimal.NewFromInt(500)))
	assert.True(t, d.Price("MF_999999").Equal(decimal.NewFromInt(20)))
	// Bands still win over the configured fund fallback
	assert.True(t, d.Price("MF_120828").Equal(decimal.NewFromInt(50)))
}

func TestFundHouse(t *testing.T) {
	house, ok := FundHouse("MF_131234")
	assert.True(t, ok)
	assert.Equal(t, "HDFC", house)

	_, ok = FundHouse("RELIANCE")
	assert.False(t, ok)
}

func TestGuessSector(t *testing.T) {
	tests := map[string]string{
		"RELIANCE.NS":  "Oil & Gas",
		"TCS":          "Technology",
		"ICICIBANK":    "Banking",
		"BAJFINANCE":   "Finance",
		"HINDUNILVR":   "FMCG",
		"SUNPHARMA.BO": "Pharmaceuticals",
		"TATAMOTORS":   "Automobile",
		"ASIANPAINT":   "Paints",
		"LTTS":         SectorOther,
		"PNBBANK":      "Banking",
		"XYZPOWER":     "Power & Energy",
		"ZZZZ":         SectorOther,
		"":             SectorOther,
	}
	for ticker, want := range tests {
		assert.Equal(t, want, GuessSector(ticker), "GuessSector(%q)", ticker)
	}
}
