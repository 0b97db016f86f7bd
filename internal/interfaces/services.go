package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// PriceResolver resolves a single price. Resolve never fails; the worst case
// is a synthetic default quote.
type PriceResolver interface {
	Resolve(ctx context.Context, req models.PriceRequest, userID string) *models.PriceQuote
}

// PriceRefresher fetches a fresh provider price, skipping recorded history
// and every cache. It returns nil when no provider answers.
type PriceRefresher interface {
	RefreshPrice(ctx context.Context, ticker string) *models.PriceQuote
}

// QuoteInvalidator drops cached live quotes.
type QuoteInvalidator interface {
	Invalidate(tickers ...string)
}

// BatchResolver resolves many prices within a time budget.
type BatchResolver interface {
	ResolveBatch(ctx context.Context, requests []models.PriceRequest, userID string, budget time.Duration) models.BatchResult
}

// StockDataService keeps the instrument cache warm.
type StockDataService interface {
	Refresh(ctx context.Context) (*models.RefreshReport, error)
	Stats(ctx context.Context) (*models.InstrumentStats, error)
}

// ValuationService values a user's holdings at live prices.
type ValuationService interface {
	GetValuation(ctx context.Context, userID string) (*models.Valuation, error)
}

// ImportService ingests CSV transaction files.
type ImportService interface {
	Import(ctx context.Context, userID, filename string, r io.Reader) (*models.ImportResult, error)
	ImportInbox(ctx context.Context, userID string) ([]*models.ImportResult, error)
}
