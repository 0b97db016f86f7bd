package price

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ProviderTransactions labels prices taken from recorded transactions.
const ProviderTransactions = "transactions"

// HistorySource reads prices out of the users' own recorded transactions.
type HistorySource struct {
	store  interfaces.TransactionStore
	logger *common.Logger
	now    func() time.Time
}

// NewHistorySource creates a history source. store may be nil, in which case
// every lookup misses.
func NewHistorySource(store interfaces.TransactionStore, logger *common.Logger) *HistorySource {
	return &HistorySource{store: store, logger: logger, now: time.Now}
}

// Lookup finds a recorded price for ticker.
//
// Only observed prices count; rows priced with a synthetic default are
// ignored. With no date it returns the mean of those prices for the ticker,
// across all users. With a date it returns the price of the userID's
// transaction closest to that date (all users when userID is empty); equal
// distances go to the lowest transaction id. Distance acceptance is left to
// the caller. Storage failures are logged and reported as a miss.
func (h *HistorySource) Lookup(ctx context.Context, ticker string, asOf *time.Time, userID string) *models.ProviderPrice {
	if h == nil || h.store == nil {
		return nil
	}
	if asOf == nil {
		return h.mean(ctx, ticker)
	}
	return h.nearest(ctx, ticker, *asOf, userID)
}

func (h *HistorySource) mean(ctx context.Context, ticker string) *models.ProviderPrice {
	txns, err := h.store.GetTransactions(ctx, "", ticker)
	if err != nil {
		h.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to read transaction history")
		return nil
	}

	sum := decimal.Zero
	n := 0
	var name string
	for _, t := range txns {
		if !t.HasObservedPrice() {
			continue
		}
		sum = sum.Add(*t.Price)
		n++
		if name == "" {
			name = t.StockName
		}
	}
	if n == 0 {
		return nil
	}
	return &models.ProviderPrice{
		Price:    sum.Div(decimal.NewFromInt(int64(n))),
		AsOf:     models.TruncateDay(h.now()),
		Provider: ProviderTransactions,
		Name:     name,
	}
}

func (h *HistorySource) nearest(ctx context.Context, ticker string, target time.Time, userID string) *models.ProviderPrice {
	txns, err := h.store.GetTransactions(ctx, userID, ticker)
	if err != nil {
		h.logger.Warn().Err(err).Str("ticker", ticker).Str("user", userID).Msg("Failed to read transaction history")
		return nil
	}

	var best *models.Transaction
	bestDistance := 0
	for _, t := range txns {
		if !t.HasObservedPrice() || t.Date.IsZero() {
			continue
		}
		d := models.DaysBetween(t.Date, target)
		if best == nil || d < bestDistance || (d == bestDistance && t.ID < best.ID) {
			best = t
			bestDistance = d
		}
	}
	if best == nil {
		return nil
	}
	return &models.ProviderPrice{
		Price:    *best.Price,
		AsOf:     best.Date,
		Provider: ProviderTransactions,
		Name:     best.StockName,
	}
}
