package yahoo

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

// ProviderName identifies Yahoo Finance in quote provenance.
const ProviderName = "yahoo"

// HistoryWindowDays is how far either side of a target date bars are considered.
const HistoryWindowDays = 30

// DefaultSuffixes are the Yahoo listings tried for Indian equities.
var DefaultSuffixes = []string{".NS", ".BO"}

// Adapter exposes the client as the secondary equity price source.
type Adapter struct {
	client   *Client
	suffixes []string
	usdINR   decimal.Decimal
	logger   *common.Logger
	now      func() time.Time
}

// NewAdapter creates an adapter. usdINR converts market caps of listings
// outside the Indian exchanges; zero disables conversion.
func NewAdapter(client *Client, suffixes []string, usdINR float64, logger *common.Logger) *Adapter {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	return &Adapter{
		client:   client,
		suffixes: suffixes,
		usdINR:   decimal.NewFromFloat(usdINR),
		logger:   logger,
		now:      time.Now,
	}
}

func (a *Adapter) Name() string { return ProviderName }

// FetchCurrent returns the first listing with a positive price.
func (a *Adapter) FetchCurrent(ctx context.Context, ticker string) *models.ProviderPrice {
	for _, symbol := range instrument.ExchangeVariants(ticker, a.suffixes) {
		q, err := a.client.GetQuote(ctx, symbol)
		if err != nil || q == nil || q.Price <= 0 {
			a.logFailure(err, ticker, symbol, "quote")
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		asOf := q.Time
		if asOf.IsZero() {
			asOf = a.now()
		}
		return &models.ProviderPrice{
			Price:    decimal.NewFromFloat(q.Price),
			AsOf:     asOf,
			Provider: ProviderName,
			Name:     q.Name,
		}
	}
	return nil
}

// FetchHistorical returns the close nearest to date among the bars within
// HistoryWindowDays of it.
func (a *Adapter) FetchHistorical(ctx context.Context, ticker string, date time.Time) *models.ProviderPrice {
	from := date.AddDate(0, 0, -HistoryWindowDays)
	for _, symbol := range instrument.ExchangeVariants(ticker, a.suffixes) {
		bars, err := a.client.GetHistory(ctx, symbol, from)
		if err != nil {
			a.logFailure(err, ticker, symbol, "history")
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		var best *Bar
		bestDistance := 0
		for i := range bars {
			b := &bars[i]
			if b.Close <= 0 {
				continue
			}
			d := models.DaysBetween(b.Date, date)
			if d > HistoryWindowDays {
				continue
			}
			if best == nil || d < bestDistance {
				best, bestDistance = b, d
			}
		}
		if best != nil {
			return &models.ProviderPrice{
				Price:    decimal.NewFromFloat(best.Close),
				AsOf:     best.Date,
				Provider: ProviderName,
			}
		}
	}
	return nil
}

// FetchSector reports Yahoo's industry for the first listing that has one.
func (a *Adapter) FetchSector(ctx context.Context, ticker string) string {
	for _, symbol := range instrument.ExchangeVariants(ticker, a.suffixes) {
		info, err := a.client.GetInfo(ctx, symbol)
		if err != nil {
			a.logFailure(err, ticker, symbol, "info")
			continue
		}
		if info.Industry != "" {
			return info.Industry
		}
	}
	return ""
}

// FetchMarketCap returns the market cap in INR.
func (a *Adapter) FetchMarketCap(ctx context.Context, ticker string) *decimal.Decimal {
	for _, symbol := range instrument.ExchangeVariants(ticker, a.suffixes) {
		info, err := a.client.GetInfo(ctx, symbol)
		if err != nil || info.MarketCap <= 0 {
			continue
		}
		mc := decimal.NewFromFloat(info.MarketCap)
		if !isIndianListing(symbol) && a.usdINR.IsPositive() {
			mc = mc.Mul(a.usdINR)
		}
		return &mc
	}
	return nil
}

func isIndianListing(symbol string) bool {
	s := strings.ToUpper(symbol)
	return strings.HasSuffix(s, ".NS") || strings.HasSuffix(s, ".BO")
}

func (a *Adapter) logFailure(err error, ticker, symbol, call string) {
	a.logger.Debug().
		Err(err).
		Str("provider", ProviderName).
		Str("ticker", ticker).
		Str("symbol", symbol).
		Str("call", call).
		Msg("Yahoo lookup failed")
}

var (
	_ interfaces.PriceAdapter     = (*Adapter)(nil)
	_ interfaces.MetadataProvider = (*Adapter)(nil)
)
