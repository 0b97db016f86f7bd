package app

import (
	"context"
	"os"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// warmCache refreshes the instrument cache on startup when it is stale, so
// the fallback tier and sector lookups have data before the first tick.
func warmCache(ctx context.Context, stockData interfaces.StockDataService, logger *common.Logger) {
	if os.Getenv("FOLIO_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via FOLIO_WARM_CACHE=off")
		return
	}

	start := time.Now()

	stats, err := stockData.Stats(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Warm cache: failed to read instrument stats")
		return
	}
	if stats.TotalInstruments > 0 && common.IsFresh(stats.LastUpdated, common.FreshnessInstrument) {
		logger.Info().
			Int("instruments", stats.TotalInstruments).
			Time("last_updated", stats.LastUpdated).
			Msg("Warm cache: instrument cache already fresh, skipping")
		return
	}

	logger.Info().Int("instruments", stats.TotalInstruments).Msg("Warm cache: starting")

	report, err := stockData.Refresh(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Warm cache: refresh interrupted")
		return
	}

	logger.Info().
		Int("funds", report.Funds).
		Int("equities", report.Equities).
		Int("updated", report.Updated).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
