// Package stockdata keeps the stock_data instrument cache warm: it re-prices
// every held ticker, records sector and market cap metadata, and pushes
// sectors back onto the transactions that reference each ticker.
package stockdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Compile-time interface check
var _ interfaces.StockDataService = (*Service)(nil)

// Sizer reports the number of live cache entries.
type Sizer interface {
	Len() int
}

// Metadata lists the sector/market-cap sources per kind, tried in order.
type Metadata struct {
	Equity []interfaces.MetadataProvider
	Funds  []interfaces.MetadataProvider
}

// Options controls pacing between provider calls.
type Options struct {
	FundDelay  time.Duration
	StockDelay time.Duration
}

// OptionsFromConfig reads pacing from the stockdata config section.
func OptionsFromConfig(c common.StockDataConfig) Options {
	return Options{
		FundDelay:  c.GetFundDelay(),
		StockDelay: c.GetStockDelay(),
	}
}

// Service implements StockDataService
type Service struct {
	transactions interfaces.TransactionStore
	instruments  interfaces.InstrumentStore
	prices       interfaces.PriceRefresher
	metadata     Metadata
	cache        Sizer
	opts         Options
	logger       *common.Logger
	now          func() time.Time
}

// NewService creates a new stock data service. cache may be nil.
func NewService(
	transactions interfaces.TransactionStore,
	instruments interfaces.InstrumentStore,
	prices interfaces.PriceRefresher,
	metadata Metadata,
	cache Sizer,
	opts Options,
	logger *common.Logger,
) *Service {
	return &Service{
		transactions: transactions,
		instruments:  instruments,
		prices:       prices,
		metadata:     metadata,
		cache:        cache,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// Refresh updates every ticker held by any user. Funds go first with the
// shorter delay, then equities. Prices come straight from the primary and
// secondary providers; a ticker neither of them prices counts as failed.
func (s *Service) Refresh(ctx context.Context) (*models.RefreshReport, error) {
	start := s.now()

	tickers, err := s.transactions.ListTickers(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}

	var funds, equities []string
	seen := make(map[string]bool)
	for _, t := range tickers {
		key := instrument.Normalize(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if instrument.IsMutualFund(t) {
			funds = append(funds, t)
		} else {
			equities = append(equities, t)
		}
	}

	report := &models.RefreshReport{Funds: len(funds), Equities: len(equities)}
	s.logger.Info().Int("funds", len(funds)).Int("equities", len(equities)).Msg("Stock data refresh started")

	for i, t := range funds {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && !sleep(ctx, s.opts.FundDelay) {
			break
		}
		s.refreshOne(ctx, t, models.KindMutualFund, report)
	}
	for i, t := range equities {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && !sleep(ctx, s.opts.StockDelay) {
			break
		}
		s.refreshOne(ctx, t, models.KindEquity, report)
	}

	report.Elapsed = s.now().Sub(start)
	s.logger.Info().
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Int("sectors_updated", report.SectorsUpdated).
		Dur("elapsed", report.Elapsed).
		Msg("Stock data refresh complete")

	return report, ctx.Err()
}

func (s *Service) refreshOne(ctx context.Context, ticker string, kind models.InstrumentKind, report *models.RefreshReport) {
	if _, err := models.LiveRequest(ticker); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Skipping malformed ticker")
		report.Failed++
		return
	}

	if quote := s.prices.RefreshPrice(ctx, ticker); quote != nil {
		report.Updated++
	} else {
		s.logger.Debug().Str("ticker", ticker).Msg("No provider price")
		report.Failed++
	}

	sector, marketCap := s.describe(ctx, ticker, kind)
	inst := &models.CachedInstrument{
		Ticker:      ticker,
		Kind:        kind,
		Sector:      sector,
		MarketCap:   marketCap,
		LastUpdated: s.now(),
	}
	if err := s.instruments.UpsertCachedInstrument(ctx, inst); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to update instrument cache")
	}

	if sector == "" {
		return
	}
	n, err := s.transactions.UpdateSector(ctx, ticker, sector)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to propagate sector")
		return
	}
	report.SectorsUpdated += n
}

// describe asks each metadata provider for the kind in turn. Funds without a
// category fall back to the generic mutual fund sector; equities fall back
// to the keyword guess.
func (s *Service) describe(ctx context.Context, ticker string, kind models.InstrumentKind) (string, *decimal.Decimal) {
	providers := s.metadata.Equity
	if kind == models.KindMutualFund {
		providers = s.metadata.Funds
	}

	var sector string
	var marketCap *decimal.Decimal
	for _, p := range providers {
		if sector == "" {
			sector = p.FetchSector(ctx, ticker)
		}
		if marketCap == nil && kind == models.KindEquity {
			marketCap = p.FetchMarketCap(ctx, ticker)
		}
		if sector != "" && (marketCap != nil || kind == models.KindMutualFund) {
			break
		}
	}

	if sector == "" {
		if kind == models.KindMutualFund {
			sector = models.SectorMutualFunds
		} else {
			sector = instrument.GuessSector(ticker)
		}
	}
	return sector, marketCap
}

// Stats summarises the instrument cache.
func (s *Service) Stats(ctx context.Context) (*models.InstrumentStats, error) {
	list, err := s.instruments.ListCachedInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}

	stats := &models.InstrumentStats{TotalInstruments: len(list)}
	for _, inst := range list {
		switch inst.Kind {
		case models.KindMutualFund:
			stats.Funds++
		case models.KindEquity:
			stats.Equities++
		}
		if inst.LastUpdated.After(stats.LastUpdated) {
			stats.LastUpdated = inst.LastUpdated
		}
	}
	if s.cache != nil {
		stats.LiveCacheSize = s.cache.Len()
	}
	return stats, nil
}

// sleep waits d or until ctx is done, reporting whether it completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
