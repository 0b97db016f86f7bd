// Package price resolves equity and mutual fund prices through an ordered
// chain of sources, ending in a synthetic default so a price always exists.
package price

import (
	"context"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Adapters are the external price sources per instrument kind. Any of them
// may be nil; a nil adapter's tier is skipped.
type Adapters struct {
	EquityPrimary   interfaces.PriceAdapter
	EquitySecondary interfaces.PriceAdapter
	FundPrimary     interfaces.PriceAdapter
	FundSecondary   interfaces.PriceAdapter
	Fallback        interfaces.PriceAdapter
}

// Options carries the resolution policy.
type Options struct {
	Windows      Windows
	Defaults     instrument.Defaults
	LiveCacheTTL time.Duration
}

// DefaultOptions returns 30 day windows, the standard synthetic prices and a 60s live cache.
func DefaultOptions() Options {
	return Options{
		Windows:      DefaultWindows(),
		Defaults:     instrument.StandardDefaults,
		LiveCacheTTL: common.FreshnessLivePrice,
	}
}

// OptionsFromConfig builds Options from the pricing config section.
func OptionsFromConfig(c common.PricingConfig) Options {
	return Options{
		Windows:      WindowsFromConfig(c),
		Defaults:     instrument.NewDefaults(c.EquityDefaultPrice, c.FundDefaultPrice),
		LiveCacheTTL: c.GetLiveCacheTTL(),
	}
}

// fetchFunc produces a raw observation for a request, or nil.
type fetchFunc func(ctx context.Context, req models.PriceRequest, userID string) *models.ProviderPrice

// tier is one step of the resolution chain.
type tier struct {
	source models.PriceSource
	name   string
	fetch  fetchFunc
}

// Resolver walks the tier chain for single price requests.
type Resolver struct {
	chains      map[models.InstrumentKind][]tier
	cache       *LiveCache
	instruments interfaces.InstrumentStore
	windows     Windows
	defaults    instrument.Defaults
	logger      *common.Logger
	now         func() time.Time
}

// NewResolver wires a resolver. txns and instruments may be nil; the
// history tier then always misses and the instrument cache is not updated.
func NewResolver(adapters Adapters, txns interfaces.TransactionStore, instruments interfaces.InstrumentStore, opts Options, logger *common.Logger) *Resolver {
	r := &Resolver{
		cache:       NewLiveCache(opts.LiveCacheTTL),
		instruments: instruments,
		windows:     opts.Windows,
		defaults:    opts.Defaults,
		logger:      logger,
		now:         time.Now,
	}
	if r.defaults.Equity.IsZero() || r.defaults.Fund.IsZero() {
		r.defaults = instrument.StandardDefaults
	}
	if r.windows == (Windows{}) {
		r.windows = DefaultWindows()
	}

	history := NewHistorySource(txns, logger)
	historyTier := tier{
		source: models.SourceTransactionHistory,
		name:   ProviderTransactions,
		fetch: func(ctx context.Context, req models.PriceRequest, userID string) *models.ProviderPrice {
			if date, ok := req.AsOf(); ok {
				return history.Lookup(ctx, req.Ticker(), &date, userID)
			}
			return history.Lookup(ctx, req.Ticker(), nil, userID)
		},
	}

	r.chains = map[models.InstrumentKind][]tier{
		models.KindEquity: buildChain(historyTier,
			adapterTier(models.SourceProviderPrimary, adapters.EquityPrimary),
			adapterTier(models.SourceProviderSecondary, adapters.EquitySecondary),
			adapterTier(models.SourceProviderFallback, adapters.Fallback),
		),
		models.KindMutualFund: buildChain(historyTier,
			adapterTier(models.SourceProviderPrimary, adapters.FundPrimary),
			adapterTier(models.SourceProviderSecondary, adapters.FundSecondary),
			adapterTier(models.SourceProviderFallback, adapters.Fallback),
		),
	}
	return r
}

// adapterTier wraps an adapter as a tier; a nil adapter gives a zero tier
// that buildChain drops.
func adapterTier(source models.PriceSource, a interfaces.PriceAdapter) tier {
	if a == nil {
		return tier{}
	}
	return tier{
		source: source,
		name:   a.Name(),
		fetch: func(ctx context.Context, req models.PriceRequest, _ string) *models.ProviderPrice {
			if date, ok := req.AsOf(); ok {
				return a.FetchHistorical(ctx, req.Ticker(), date)
			}
			return a.FetchCurrent(ctx, req.Ticker())
		},
	}
}

func buildChain(tiers ...tier) []tier {
	out := make([]tier, 0, len(tiers))
	for _, t := range tiers {
		if t.fetch != nil {
			out = append(out, t)
		}
	}
	return out
}

// Cache exposes the live price cache.
func (r *Resolver) Cache() *LiveCache {
	return r.cache
}

// Resolve returns a quote for req. It never returns nil: when every tier
// misses, or ctx is done, the synthetic default is used.
func (r *Resolver) Resolve(ctx context.Context, req models.PriceRequest, userID string) *models.PriceQuote {
	ticker := req.Ticker()
	kind := instrument.Classify(ticker)

	if req.IsLive() {
		if q := r.cache.Get(ticker); q != nil {
			r.logger.Debug().Str("ticker", ticker).Str("source", string(q.Source())).Msg("Live cache hit")
			return q
		}
	}

	for _, t := range r.chains[kind] {
		if ctx.Err() != nil {
			r.logger.Debug().Str("ticker", ticker).Msg("Context done, skipping remaining tiers")
			break
		}

		obs := t.fetch(ctx, req, userID)
		if !obs.Valid() {
			r.logger.Debug().Str("ticker", ticker).Str("tier", string(t.source)).Str("provider", t.name).Msg("No price")
			continue
		}

		q, distance := r.accept(t, kind, req, obs)
		if q == nil {
			r.logger.Debug().
				Str("ticker", ticker).
				Str("tier", string(t.source)).
				Str("provider", t.name).
				Int("distance_days", distance).
				Int("window_days", r.windows.For(t.source, kind)).
				Msg("Price outside acceptance window")
			continue
		}

		r.logger.Debug().
			Str("ticker", ticker).
			Str("tier", string(t.source)).
			Str("provider", q.Provider()).
			Str("price", q.Price().String()).
			Int("distance_days", q.DistanceDays()).
			Msg("Price resolved")

		if req.IsLive() {
			r.cache.Put(ticker, q)
		}
		r.remember(ctx, req, kind, q, obs)
		return q
	}

	return r.synthetic(req)
}

// RefreshPrice asks the primary and secondary providers for a current price,
// bypassing the live cache, recorded history and the instrument cache. A hit
// is written to the instrument cache only, so live requests keep their tier
// order. It returns nil when no provider answers.
func (r *Resolver) RefreshPrice(ctx context.Context, ticker string) *models.PriceQuote {
	req, err := models.LiveRequest(ticker)
	if err != nil || req.Ticker() == "" {
		return nil
	}
	kind := instrument.Classify(ticker)

	for _, t := range r.chains[kind] {
		if !isProviderSource(t.source) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		obs := t.fetch(ctx, req, "")
		if !obs.Valid() {
			continue
		}
		q, _ := r.accept(t, kind, req, obs)
		if q == nil {
			continue
		}
		r.logger.Debug().Str("ticker", ticker).Str("provider", q.Provider()).Str("price", q.Price().String()).Msg("Price refreshed")
		r.remember(ctx, req, kind, q, obs)
		return q
	}
	return nil
}

// Invalidate drops live cache entries for tickers.
func (r *Resolver) Invalidate(tickers ...string) {
	r.cache.Delete(tickers...)
}

// accept converts an observation into a quote when it falls inside the
// tier's window. Live requests skip the window and carry distance 0.
func (r *Resolver) accept(t tier, kind models.InstrumentKind, req models.PriceRequest, obs *models.ProviderPrice) (*models.PriceQuote, int) {
	provider := obs.Provider
	if provider == "" {
		provider = t.name
	}

	target, historical := req.AsOf()
	if !historical {
		asOf := obs.AsOf
		if asOf.IsZero() {
			asOf = r.now()
		}
		q, err := models.NewPriceQuote(obs.Price, asOf, t.source, 0, provider)
		if err != nil {
			return nil, 0
		}
		return q, 0
	}

	if obs.AsOf.IsZero() {
		return nil, -1
	}
	distance := models.DaysBetween(obs.AsOf, target)
	if !r.windows.Accept(t.source, kind, distance) {
		return nil, distance
	}
	q, err := models.NewPriceQuote(obs.Price, obs.AsOf, t.source, distance, provider)
	if err != nil {
		return nil, distance
	}
	return q, distance
}

// synthetic builds the last-resort quote, dated at the target or today.
func (r *Resolver) synthetic(req models.PriceRequest) *models.PriceQuote {
	asOf, ok := req.AsOf()
	if !ok {
		asOf = r.now()
	}
	q := models.MustPriceQuote(r.defaults.Price(req.Ticker()), asOf, models.SourceSyntheticDefault, 0, "")
	r.logger.Debug().
		Str("ticker", req.Ticker()).
		Str("tier", string(models.SourceSyntheticDefault)).
		Str("price", q.Price().String()).
		Msg("Using synthetic default price")
	return q
}

// remember writes a provider observation into the instrument cache. Only
// primary and secondary results carry a price; failures are logged.
func (r *Resolver) remember(ctx context.Context, req models.PriceRequest, kind models.InstrumentKind, q *models.PriceQuote, obs *models.ProviderPrice) {
	if r.instruments == nil || req.Ticker() == "" {
		return
	}
	if !isProviderSource(q.Source()) {
		return
	}

	price := q.Price()
	entry := &models.CachedInstrument{
		Ticker:      strings.ToUpper(req.Ticker()),
		Kind:        kind,
		Name:        obs.Name,
		Price:       &price,
		PriceSource: q.Source(),
		PriceAsOf:   q.AsOf(),
		LastUpdated: r.now(),
	}
	if err := r.instruments.UpsertCachedInstrument(ctx, entry); err != nil {
		r.logger.Warn().Err(err).Str("ticker", req.Ticker()).Msg("Failed to update instrument cache")
	}
}

func isProviderSource(src models.PriceSource) bool {
	return src == models.SourceProviderPrimary || src == models.SourceProviderSecondary
}

// Ensure Resolver implements PriceResolver, PriceRefresher and QuoteInvalidator
var (
	_ interfaces.PriceResolver    = (*Resolver)(nil)
	_ interfaces.PriceRefresher   = (*Resolver)(nil)
	_ interfaces.QuoteInvalidator = (*Resolver)(nil)
)
