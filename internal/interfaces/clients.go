// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// PriceAdapter is one external price source. Implementations never return
// errors: every provider failure is logged and reported as nil, which the
// resolution engine treats as "try the next tier".
type PriceAdapter interface {
	// Name identifies the provider in logs and quote provenance.
	Name() string

	// FetchCurrent returns the latest available price.
	FetchCurrent(ctx context.Context, ticker string) *models.ProviderPrice

	// FetchHistorical returns the observation closest to date. Distance
	// acceptance is decided by the caller.
	FetchHistorical(ctx context.Context, ticker string, date time.Time) *models.ProviderPrice
}

// MetadataProvider is implemented by adapters that can describe an instrument.
// Both calls are best effort and return zero values on failure.
type MetadataProvider interface {
	FetchSector(ctx context.Context, ticker string) string
	FetchMarketCap(ctx context.Context, ticker string) *decimal.Decimal
}
