package mfapi

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ProviderName identifies mfapi in quote provenance.
const ProviderName = "mfapi"

// Adapter exposes the client as the primary mutual fund price source.
type Adapter struct {
	client *Client
	logger *common.Logger
}

// NewAdapter creates the adapter.
func NewAdapter(client *Client, logger *common.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

func (a *Adapter) Name() string { return ProviderName }

// FetchCurrent returns the latest published NAV.
func (a *Adapter) FetchCurrent(ctx context.Context, ticker string) *models.ProviderPrice {
	code, ok := instrument.SchemeCode(ticker)
	if !ok {
		return nil
	}
	s, err := a.client.GetLatest(ctx, code)
	if err != nil {
		a.logFailure(err, ticker, code)
		return nil
	}
	return toPrice(s, s.NAVs)
}

// FetchHistorical returns the NAV dated closest to date. When the history
// is empty the latest NAV is returned with its own date.
func (a *Adapter) FetchHistorical(ctx context.Context, ticker string, date time.Time) *models.ProviderPrice {
	code, ok := instrument.SchemeCode(ticker)
	if !ok {
		return nil
	}
	s, err := a.client.GetScheme(ctx, code)
	if err != nil {
		a.logFailure(err, ticker, code)
		return nil
	}
	if nav, ok := nearestNAV(s.NAVs, date); ok {
		return toPrice(s, []NAV{nav})
	}

	latest, err := a.client.GetLatest(ctx, code)
	if err != nil {
		a.logFailure(err, ticker, code)
		return nil
	}
	return toPrice(latest, latest.NAVs)
}

func nearestNAV(navs []NAV, date time.Time) (NAV, bool) {
	var best NAV
	found := false
	bestDistance := 0
	for _, n := range navs {
		if !n.NAV.IsPositive() {
			continue
		}
		d := models.DaysBetween(n.Date, date)
		if !found || d < bestDistance {
			best, bestDistance, found = n, d, true
		}
	}
	return best, found
}

func toPrice(s *Scheme, navs []NAV) *models.ProviderPrice {
	if len(navs) == 0 {
		return nil
	}
	return &models.ProviderPrice{
		Price:    navs[0].NAV,
		AsOf:     navs[0].Date,
		Provider: ProviderName,
		Name:     s.Name,
	}
}

// FetchSector returns the scheme category, e.g. "Equity Scheme - Large Cap Fund".
func (a *Adapter) FetchSector(ctx context.Context, ticker string) string {
	code, ok := instrument.SchemeCode(ticker)
	if !ok {
		return ""
	}
	s, err := a.client.GetLatest(ctx, code)
	if err != nil {
		a.logFailure(err, ticker, code)
		return ""
	}
	return s.Category
}

// FetchMarketCap is always nil; schemes have no market capitalisation.
func (a *Adapter) FetchMarketCap(_ context.Context, _ string) *decimal.Decimal {
	return nil
}

func (a *Adapter) logFailure(err error, ticker, code string) {
	a.logger.Debug().
		Err(err).
		Str("provider", ProviderName).
		Str("ticker", ticker).
		Str("scheme_code", code).
		Msg("mfapi lookup failed")
}

var (
	_ interfaces.PriceAdapter     = (*Adapter)(nil)
	_ interfaces.MetadataProvider = (*Adapter)(nil)
)
