package price

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// CacheAdapter serves the last provider price recorded in the instrument
// cache. It backs the provider_fallback tier for both kinds.
type CacheAdapter struct {
	store  interfaces.InstrumentStore
	logger *common.Logger
}

// NewCacheAdapter creates the fallback adapter.
func NewCacheAdapter(store interfaces.InstrumentStore, logger *common.Logger) *CacheAdapter {
	return &CacheAdapter{store: store, logger: logger}
}

func (a *CacheAdapter) Name() string { return "instrument_cache" }

// FetchCurrent returns the cached price dated by when it was observed.
func (a *CacheAdapter) FetchCurrent(ctx context.Context, ticker string) *models.ProviderPrice {
	return a.lookup(ctx, ticker)
}

// FetchHistorical returns the same cached observation; the engine's window
// check decides whether it is close enough to date.
func (a *CacheAdapter) FetchHistorical(ctx context.Context, ticker string, _ time.Time) *models.ProviderPrice {
	return a.lookup(ctx, ticker)
}

func (a *CacheAdapter) lookup(ctx context.Context, ticker string) *models.ProviderPrice {
	if a.store == nil || ticker == "" {
		return nil
	}
	inst, err := a.store.GetCachedInstrument(ctx, ticker)
	if errors.Is(err, interfaces.ErrNotFound) {
		if base := instrument.Normalize(ticker); base != ticker {
			inst, err = a.store.GetCachedInstrument(ctx, base)
		}
	}
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			a.logger.Warn().Err(err).Str("provider", a.Name()).Str("ticker", ticker).Msg("Instrument cache lookup failed")
		}
		return nil
	}
	if inst == nil || inst.Price == nil || !inst.Price.IsPositive() {
		return nil
	}
	// Only real provider observations are served; anything else would be
	// relabelled as a market price.
	if inst.PriceSource != models.SourceProviderPrimary && inst.PriceSource != models.SourceProviderSecondary {
		return nil
	}
	asOf := inst.PriceAsOf
	if asOf.IsZero() {
		asOf = inst.LastUpdated
	}
	if asOf.IsZero() {
		return nil
	}
	return &models.ProviderPrice{
		Price:    *inst.Price,
		AsOf:     asOf,
		Provider: a.Name(),
		Name:     inst.Name,
	}
}

var _ interfaces.PriceAdapter = (*CacheAdapter)(nil)
