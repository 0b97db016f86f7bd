package eodhd

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ProviderName identifies EODHD in quote provenance.
const ProviderName = "eodhd"

// HistoryWindowDays is the half-width of the EOD range requested around a target date.
const HistoryWindowDays = 10

// DefaultExchanges are the EODHD exchange codes tried for Indian equities.
var DefaultExchanges = []string{"NSE", "BSE"}

// Adapter exposes the client as the primary equity price source.
type Adapter struct {
	client   *Client
	suffixes []string
	logger   *common.Logger
	now      func() time.Time
}

// NewAdapter creates an adapter trying each exchange code in order.
func NewAdapter(client *Client, exchanges []string, logger *common.Logger) *Adapter {
	if len(exchanges) == 0 {
		exchanges = DefaultExchanges
	}
	suffixes := make([]string, 0, len(exchanges))
	for _, ex := range exchanges {
		ex = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(ex), "."))
		if ex != "" {
			suffixes = append(suffixes, "."+ex)
		}
	}
	return &Adapter{client: client, suffixes: suffixes, logger: logger, now: time.Now}
}

func (a *Adapter) Name() string { return ProviderName }

// FetchCurrent returns the real-time close of the first listing that has
// one, using the previous close when the market has not traded yet.
func (a *Adapter) FetchCurrent(ctx context.Context, ticker string) *models.ProviderPrice {
	for _, symbol := range instrument.ExchangeVariants(ticker, a.suffixes) {
		quote, err := a.client.GetRealTimeQuote(ctx, symbol)
		if err != nil {
			a.logFailure(err, ticker, symbol, "real-time")
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		price := quote.Close
		if price <= 0 {
			price = quote.PreviousClose
		}
		if price <= 0 {
			continue
		}
		asOf := quote.Timestamp
		if asOf.IsZero() {
			asOf = a.now()
		}
		return &models.ProviderPrice{
			Price:    decimal.NewFromFloat(price),
			AsOf:     asOf,
			Provider: ProviderName,
		}
	}
	return nil
}

// FetchHistorical requests the EOD bars within HistoryWindowDays of date
// and returns the close nearest to it.
func (a *Adapter) FetchHistorical(ctx context.Context, ticker string, date time.Time) *models.ProviderPrice {
	from := date.AddDate(0, 0, -HistoryWindowDays)
	to := date.AddDate(0, 0, HistoryWindowDays)

	for _, symbol := range instrument.ExchangeVariants(ticker, a.suffixes) {
		bars, err := a.client.GetEOD(ctx, symbol, from, to)
		if err != nil {
			a.logFailure(err, ticker, symbol, "eod")
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		if bar, ok := nearestBar(bars, date); ok {
			return &models.ProviderPrice{
				Price:    decimal.NewFromFloat(bar.Close),
				AsOf:     bar.Date,
				Provider: ProviderName,
			}
		}
	}
	return nil
}

// nearestBar picks the positive close closest to date; ties go to the earlier bar.
func nearestBar(bars []Bar, date time.Time) (Bar, bool) {
	var best Bar
	found := false
	bestDistance := 0
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		d := models.DaysBetween(b.Date, date)
		if !found || d < bestDistance {
			best, bestDistance, found = b, d, true
		}
	}
	return best, found
}

// FetchSector returns the fundamentals sector, or the industry when the
// sector is blank.
func (a *Adapter) FetchSector(ctx context.Context, ticker string) string {
	f := a.fundamentals(ctx, ticker)
	if f == nil {
		return ""
	}
	if f.Sector != "" {
		return f.Sector
	}
	return f.Industry
}

// FetchMarketCap returns the fundamentals market capitalisation.
func (a *Adapter) FetchMarketCap(ctx context.Context, ticker string) *decimal.Decimal {
	f := a.fundamentals(ctx, ticker)
	if f == nil || f.MarketCap <= 0 {
		return nil
	}
	mc := decimal.NewFromFloat(f.MarketCap)
	return &mc
}

func (a *Adapter) fundamentals(ctx context.Context, ticker string) *Fundamentals {
	for _, symbol := range instrument.ExchangeVariants(ticker, a.suffixes) {
		f, err := a.client.GetFundamentals(ctx, symbol)
		if err != nil {
			a.logFailure(err, ticker, symbol, "fundamentals")
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		if f.Code != "" || f.Name != "" {
			return f
		}
	}
	return nil
}

func (a *Adapter) logFailure(err error, ticker, symbol, endpoint string) {
	a.logger.Debug().
		Err(err).
		Str("provider", ProviderName).
		Str("ticker", ticker).
		Str("symbol", symbol).
		Str("endpoint", endpoint).
		Msg("EODHD lookup failed")
}

var (
	_ interfaces.PriceAdapter     = (*Adapter)(nil)
	_ interfaces.MetadataProvider = (*Adapter)(nil)
)
