package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the calendar date format used across the API and storage.
const DateLayout = "2006-01-02"

// MaxTickerLength bounds ticker strings accepted by NewPriceRequest.
const MaxTickerLength = 64

// TruncateDay returns t as a UTC calendar day at midnight.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// DaysBetween returns the absolute number of calendar days between a and b.
func DaysBetween(a, b time.Time) int {
	d := int(TruncateDay(a).Sub(TruncateDay(b)).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// PriceRequest asks for the price of a ticker, live when no date is set.
// It is comparable and can be used as a map key.
type PriceRequest struct {
	ticker string
	asOf   time.Time // zero means live
}

// NewPriceRequest builds a request, rejecting malformed shapes. An empty
// ticker is accepted; it resolves like any unknown equity.
func NewPriceRequest(ticker string, asOf *time.Time) (PriceRequest, error) {
	ticker = strings.TrimSpace(ticker)
	if len(ticker) > MaxTickerLength {
		return PriceRequest{}, fmt.Errorf("ticker exceeds %d characters", MaxTickerLength)
	}
	for _, r := range ticker {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return PriceRequest{}, fmt.Errorf("ticker %q contains whitespace or control characters", ticker)
		}
	}
	req := PriceRequest{ticker: ticker}
	if asOf != nil {
		if asOf.IsZero() {
			return PriceRequest{}, fmt.Errorf("date must be set when provided")
		}
		req.asOf = TruncateDay(*asOf)
	}
	return req, nil
}

// LiveRequest builds a current-price request.
func LiveRequest(ticker string) (PriceRequest, error) {
	return NewPriceRequest(ticker, nil)
}

// HistoricalRequest builds a request for a specific day.
func HistoricalRequest(ticker string, date time.Time) (PriceRequest, error) {
	return NewPriceRequest(ticker, &date)
}

func (r PriceRequest) Ticker() string { return r.ticker }

// AsOf returns the target date and whether one is set.
func (r PriceRequest) AsOf() (time.Time, bool) {
	return r.asOf, !r.asOf.IsZero()
}

// IsLive reports whether the request asks for a current price.
func (r PriceRequest) IsLive() bool { return r.asOf.IsZero() }

func (r PriceRequest) String() string {
	if r.IsLive() {
		return r.ticker + "@live"
	}
	return r.ticker + "@" + r.asOf.Format(DateLayout)
}

// BatchResult maps every submitted request to its quote. A nil value means
// the request was attempted and no price was found within budget.
type BatchResult map[PriceRequest]*PriceQuote

// Resolved counts entries with a quote.
func (b BatchResult) Resolved() int {
	n := 0
	for _, q := range b {
		if q != nil {
			n++
		}
	}
	return n
}

// Missing returns the requests recorded without a quote.
func (b BatchResult) Missing() []PriceRequest {
	var out []PriceRequest
	for req, q := range b {
		if q == nil {
			out = append(out, req)
		}
	}
	return out
}

// Lookup returns the quote for req and whether the request was attempted at all.
func (b BatchResult) Lookup(req PriceRequest) (*PriceQuote, bool) {
	q, ok := b[req]
	return q, ok
}
