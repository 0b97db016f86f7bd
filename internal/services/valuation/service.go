// Package valuation aggregates a user's transactions into holdings and
// values them at live prices from the resolution engine.
package valuation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Compile-time interface check
var _ interfaces.ValuationService = (*Service)(nil)

var hundred = decimal.NewFromInt(100)

// Service implements ValuationService
type Service struct {
	transactions interfaces.TransactionStore
	instruments  interfaces.InstrumentStore
	batch        interfaces.BatchResolver
	budget       time.Duration
	logger       *common.Logger
	now          func() time.Time
}

// NewService creates a new valuation service. A zero budget uses the
// coordinator default.
func NewService(transactions interfaces.TransactionStore, instruments interfaces.InstrumentStore, batch interfaces.BatchResolver, budget time.Duration, logger *common.Logger) *Service {
	return &Service{
		transactions: transactions,
		instruments:  instruments,
		batch:        batch,
		budget:       budget,
		logger:       logger,
		now:          time.Now,
	}
}

// position accumulates one ticker's transactions.
type position struct {
	key      string
	ticker   string
	name     string
	sector   string
	quantity decimal.Decimal
	invested decimal.Decimal
	channels map[string]decimal.Decimal // channel -> net quantity
	txnCount int
	lastDate time.Time
}

// GetValuation values every open position of userID.
func (s *Service) GetValuation(ctx context.Context, userID string) (*models.Valuation, error) {
	txns, err := s.transactions.GetTransactions(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	positions := aggregate(txns)

	requests := make([]models.PriceRequest, 0, len(positions))
	for _, p := range positions {
		req, err := models.LiveRequest(p.ticker)
		if err != nil {
			s.logger.Warn().Err(err).Str("ticker", p.ticker).Msg("Skipping malformed ticker")
			continue
		}
		requests = append(requests, req)
	}
	quotes := s.batch.ResolveBatch(ctx, requests, userID, s.budget)

	v := &models.Valuation{
		UserID:      userID,
		Currency:    Currency,
		Holdings:    []models.Holding{},
		GeneratedAt: s.now(),
	}
	bySector := map[string]decimal.Decimal{}
	byChannel := map[string]decimal.Decimal{}

	for _, p := range positions {
		h := models.Holding{
			Ticker:       p.ticker,
			Name:         p.name,
			Kind:         instrument.Classify(p.ticker),
			Sector:       s.sectorFor(ctx, p),
			Quantity:     p.quantity,
			Invested:     p.invested,
			Transactions: p.txnCount,
		}
		if p.quantity.IsPositive() {
			h.AverageCost = p.invested.Div(p.quantity).Round(4)
		}
		for ch := range p.channels {
			h.Channels = append(h.Channels, ch)
		}
		sort.Strings(h.Channels)

		req, _ := models.LiveRequest(p.ticker)
		if q := quotes[req]; q != nil {
			h.CurrentPrice = q
			h.CurrentValue = q.Price().Mul(p.quantity)
			h.Confidence = q.Confidence()
			if q.Source().IsEstimate() {
				v.EstimatedHoldings++
			}
			for ch, qty := range p.channels {
				byChannel[ch] = byChannel[ch].Add(q.Price().Mul(qty))
			}
		} else {
			// No price within budget: carry at cost
			h.CurrentValue = p.invested
			h.Confidence = models.ConfidenceEstimated
			v.EstimatedHoldings++
			for ch, qty := range p.channels {
				byChannel[ch] = byChannel[ch].Add(h.AverageCost.Mul(qty))
			}
		}
		h.PnL = h.CurrentValue.Sub(h.Invested)
		h.PnLPercent = percent(h.PnL, h.Invested)
		h.DisplayValue = FormatINR(h.CurrentValue)
		h.DisplayPnL = FormatSignedINR(h.PnL)

		bySector[h.Sector] = bySector[h.Sector].Add(h.CurrentValue)
		v.TotalInvested = v.TotalInvested.Add(h.Invested)
		v.TotalValue = v.TotalValue.Add(h.CurrentValue)
		v.Holdings = append(v.Holdings, h)
	}

	sort.Slice(v.Holdings, func(i, j int) bool {
		if !v.Holdings[i].CurrentValue.Equal(v.Holdings[j].CurrentValue) {
			return v.Holdings[i].CurrentValue.GreaterThan(v.Holdings[j].CurrentValue)
		}
		return v.Holdings[i].Ticker < v.Holdings[j].Ticker
	})

	v.TotalPnL = v.TotalValue.Sub(v.TotalInvested)
	v.TotalPnLPercent = percent(v.TotalPnL, v.TotalInvested)
	v.DisplayTotalValue = FormatINR(v.TotalValue)
	v.DisplayTotalPnL = FormatSignedINR(v.TotalPnL)
	v.BySector = slices(bySector, v.TotalValue)
	v.ByChannel = slices(byChannel, v.TotalValue)

	s.logger.Debug().
		Str("user", userID).
		Int("holdings", len(v.Holdings)).
		Int("estimated", v.EstimatedHoldings).
		Msg("Valuation computed")

	return v, nil
}

// aggregate folds transactions into open positions keyed by normalised
// ticker. Sells release cost at the running average.
func aggregate(txns []*models.Transaction) []*position {
	byKey := map[string]*position{}
	var order []string

	for _, t := range txns {
		key := instrument.Normalize(t.Ticker)
		p, ok := byKey[key]
		if !ok {
			p = &position{key: key, ticker: t.Ticker, channels: map[string]decimal.Decimal{}}
			byKey[key] = p
			order = append(order, key)
		}
		p.txnCount++
		if !t.Date.Before(p.lastDate) {
			p.lastDate = t.Date
			if t.StockName != "" {
				p.name = t.StockName
			}
		}
		if t.Sector != "" {
			p.sector = t.Sector
		}

		channel := t.Channel
		if channel == "" {
			channel = "direct"
		}

		switch t.Type {
		case models.TransactionBuy:
			p.invested = p.invested.Add(cost(t))
			p.quantity = p.quantity.Add(t.Quantity)
			p.channels[channel] = p.channels[channel].Add(t.Quantity)
		case models.TransactionSell:
			if p.quantity.IsPositive() {
				sold := decimal.Min(t.Quantity, p.quantity)
				avg := p.invested.Div(p.quantity)
				p.invested = p.invested.Sub(avg.Mul(sold))
			}
			p.quantity = p.quantity.Sub(t.Quantity)
			p.channels[channel] = p.channels[channel].Sub(t.Quantity)
		}
	}

	var out []*position
	for _, key := range order {
		p := byKey[key]
		if !p.quantity.IsPositive() {
			continue
		}
		for ch, qty := range p.channels {
			if !qty.IsPositive() {
				delete(p.channels, ch)
			}
		}
		out = append(out, p)
	}
	return out
}

// cost is the recorded amount, or price × quantity when no amount is set.
func cost(t *models.Transaction) decimal.Decimal {
	if t.Amount != nil {
		return t.Amount.Abs()
	}
	if t.Price != nil {
		return t.Price.Mul(t.Quantity)
	}
	return decimal.Zero
}

func (s *Service) sectorFor(ctx context.Context, p *position) string {
	if p.sector != "" {
		return p.sector
	}
	if s.instruments != nil {
		if inst, err := s.instruments.GetCachedInstrument(ctx, p.ticker); err == nil && inst.Sector != "" {
			return inst.Sector
		}
	}
	if instrument.IsMutualFund(p.ticker) {
		return models.SectorMutualFunds
	}
	return instrument.GuessSector(p.ticker)
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// slices turns a label -> value map into allocation slices, largest first.
func slices(values map[string]decimal.Decimal, total decimal.Decimal) []models.AllocationSlice {
	out := make([]models.AllocationSlice, 0, len(values))
	for label, v := range values {
		out = append(out, models.AllocationSlice{Label: label, Value: v, Percent: percent(v, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].Label < out[j].Label
	})
	return out
}
