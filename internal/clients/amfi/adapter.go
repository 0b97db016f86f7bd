package amfi

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ProviderName identifies AMFI in quote provenance.
const ProviderName = "amfi"

// Adapter exposes the NAV file as the secondary mutual fund price source.
// The file carries only the latest NAV, so historical requests get that NAV
// with its publication date and the engine's window check decides.
type Adapter struct {
	client *Client
	logger *common.Logger
}

// NewAdapter creates the adapter.
func NewAdapter(client *Client, logger *common.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

func (a *Adapter) Name() string { return ProviderName }

func (a *Adapter) FetchCurrent(ctx context.Context, ticker string) *models.ProviderPrice {
	s := a.scheme(ctx, ticker)
	if s == nil {
		return nil
	}
	return &models.ProviderPrice{Price: s.NAV, AsOf: s.Date, Provider: ProviderName, Name: s.Name}
}

func (a *Adapter) FetchHistorical(ctx context.Context, ticker string, _ time.Time) *models.ProviderPrice {
	return a.FetchCurrent(ctx, ticker)
}

// FetchSector returns the scheme category from the file's section headers.
func (a *Adapter) FetchSector(ctx context.Context, ticker string) string {
	if s := a.scheme(ctx, ticker); s != nil {
		return s.Category
	}
	return ""
}

func (a *Adapter) FetchMarketCap(_ context.Context, _ string) *decimal.Decimal {
	return nil
}

func (a *Adapter) scheme(ctx context.Context, ticker string) *Scheme {
	code, ok := instrument.SchemeCode(ticker)
	if !ok {
		return nil
	}
	s, err := a.client.GetScheme(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrSchemeNotFound) {
			a.logger.Warn().Err(err).Str("provider", ProviderName).Str("ticker", ticker).Msg("AMFI lookup failed")
		}
		return nil
	}
	return s
}

var (
	_ interfaces.PriceAdapter     = (*Adapter)(nil)
	_ interfaces.MetadataProvider = (*Adapter)(nil)
)
