package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource records which tier of the resolution chain produced a price.
type PriceSource string

const (
	SourceProviderPrimary    PriceSource = "provider_primary"
	SourceProviderSecondary  PriceSource = "provider_secondary"
	SourceProviderFallback   PriceSource = "provider_fallback"
	SourceTransactionHistory PriceSource = "transaction_history"
	SourceSyntheticDefault   PriceSource = "synthetic_default"
)

// Confidence labels shown next to a price.
const (
	ConfidenceLive      = "live market price"
	ConfidenceHistory   = "price from your own transaction history"
	ConfidenceEstimated = "estimated default price"
)

// Valid reports whether s is one of the known sources.
func (s PriceSource) Valid() bool {
	switch s {
	case SourceProviderPrimary, SourceProviderSecondary, SourceProviderFallback,
		SourceTransactionHistory, SourceSyntheticDefault:
		return true
	}
	return false
}

// Confidence returns the user-facing label for the source.
func (s PriceSource) Confidence() string {
	switch s {
	case SourceTransactionHistory:
		return ConfidenceHistory
	case SourceSyntheticDefault:
		return ConfidenceEstimated
	default:
		return ConfidenceLive
	}
}

// IsEstimate reports whether the price is a synthetic placeholder.
func (s PriceSource) IsEstimate() bool {
	return s == SourceSyntheticDefault
}

// ProviderPrice is a raw observation returned by a price adapter. The
// resolution engine turns it into a PriceQuote.
type ProviderPrice struct {
	Price    decimal.Decimal
	AsOf     time.Time
	Provider string
	Name     string // instrument name when the provider reports one
}

// Valid reports whether the observation carries a usable price.
func (p *ProviderPrice) Valid() bool {
	return p != nil && p.Price.IsPositive()
}

// PriceQuote is an immutable resolved price with provenance.
type PriceQuote struct {
	price        decimal.Decimal
	asOf         time.Time
	source       PriceSource
	distanceDays int
	provider     string
}

// NewPriceQuote validates and builds a quote. asOf is truncated to a UTC calendar day.
func NewPriceQuote(price decimal.Decimal, asOf time.Time, source PriceSource, distanceDays int, provider string) (*PriceQuote, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("price must be positive, got %s", price.String())
	}
	if !source.Valid() {
		return nil, fmt.Errorf("unknown price source %q", source)
	}
	if distanceDays < 0 {
		return nil, fmt.Errorf("distance must be non-negative, got %d", distanceDays)
	}
	if asOf.IsZero() {
		return nil, fmt.Errorf("quote date is required")
	}
	return &PriceQuote{
		price:        price,
		asOf:         TruncateDay(asOf),
		source:       source,
		distanceDays: distanceDays,
		provider:     provider,
	}, nil
}

// MustPriceQuote is NewPriceQuote for inputs already known to be valid.
func MustPriceQuote(price decimal.Decimal, asOf time.Time, source PriceSource, distanceDays int, provider string) *PriceQuote {
	q, err := NewPriceQuote(price, asOf, source, distanceDays, provider)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *PriceQuote) Price() decimal.Decimal { return q.price }
func (q *PriceQuote) AsOf() time.Time { return q.asOf }
func (q *PriceQuote) Source() PriceSource { return q.source }
func (q *PriceQuote) DistanceDays() int { return q.distanceDays }
func (q *PriceQuote) Provider() string { return q.provider }

// Confidence returns the user-facing label for the quote's source.
func (q *PriceQuote) Confidence() string { return q.source.Confidence() }

type priceQuoteJSON struct {
	Price        decimal.Decimal `json:"price"`
	AsOf         string          `json:"as_of"`
	Source       PriceSource     `json:"source"`
	DistanceDays int             `json:"distance_days"`
	Provider     string          `json:"provider,omitempty"`
	Confidence   string          `json:"confidence"`
}

// MarshalJSON encodes the quote with its confidence label.
func (q *PriceQuote) MarshalJSON() ([]byte, error) {
	return json.Marshal(priceQuoteJSON{
		Price:        q.price,
		AsOf:         q.asOf.Format(DateLayout),
		Source:       q.source,
		DistanceDays: q.distanceDays,
		Provider:     q.provider,
		Confidence:   q.Confidence(),
	})
}

// UnmarshalJSON decodes and re-validates a quote.
func (q *PriceQuote) UnmarshalJSON(data []byte) error {
	var raw priceQuoteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	asOf, err := ParseDate(raw.AsOf)
	if err != nil {
		return err
	}
	parsed, err := NewPriceQuote(raw.Price, asOf, raw.Source, raw.DistanceDays, raw.Provider)
	if err != nil {
		return err
	}
	*q = *parsed
	return nil
}

func (q *PriceQuote) String() string {
	return fmt.Sprintf("%s @ %s [%s, %dd]", q.price.String(), q.asOf.Format(DateLayout), q.source, q.distanceDays)
}
