package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is buy or sell.
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// ParseTransactionType normalises the broker vocabulary for buys and sells.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "purchase", "bought", "b":
		return TransactionBuy, true
	case "sell", "sold", "sale", "s":
		return TransactionSell, true
	}
	return "", false
}

// PriceStatus tells how a transaction's price was obtained. Empty means
// resolution was never attempted.
type PriceStatus string

const (
	PriceRecorded   PriceStatus = "recorded"   // supplied by the source file
	PriceResolved   PriceStatus = "resolved"   // filled by the resolution engine
	PriceUnresolved PriceStatus = "unresolved" // attempted, no price within budget
)

// Transaction is a row of investment_transactions.
type Transaction struct {
	ID          int64            `json:"id"`
	FileID      string           `json:"file_id,omitempty"`
	UserID      string           `json:"user_id"`
	Channel     string           `json:"channel,omitempty"`
	StockName   string           `json:"stock_name,omitempty"`
	Ticker      string           `json:"ticker"`
	Sector      string           `json:"sector,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Type        TransactionType  `json:"transaction_type"`
	Date        time.Time        `json:"date"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	PriceStatus PriceStatus      `json:"price_status,omitempty"`
	PriceSource PriceSource      `json:"price_source,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// HasPrice reports whether a positive price is recorded.
func (t *Transaction) HasPrice() bool {
	return t.Price != nil && t.Price.IsPositive()
}

// HasObservedPrice reports whether the price came from the source file or a
// real quote. Synthetic estimates written by ApplyQuote do not count.
func (t *Transaction) HasObservedPrice() bool {
	return t.HasPrice() && !t.PriceSource.IsEstimate()
}

// ApplyQuote fills price and amount from a resolved quote, or marks the
// transaction unresolved when q is nil.
func (t *Transaction) ApplyQuote(q *PriceQuote) {
	if q == nil {
		t.PriceStatus = PriceUnresolved
		return
	}
	price := q.Price()
	amount := price.Mul(t.Quantity)
	t.Price = &price
	t.Amount = &amount
	t.PriceStatus = PriceResolved
	t.PriceSource = q.Source()
}

// File status values
const (
	FileStatusProcessed = "processed"
	FileStatusPartial   = "partial"
)

// InvestmentFile is a row of investment_files.
type InvestmentFile struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FileHash         string    `json:"file_hash"`
	Channel          string    `json:"channel,omitempty"`
	FileSize         int64     `json:"file_size"`
	RowCount         int       `json:"row_count"`
	Status           string    `json:"status"`
	UploadedAt       time.Time `json:"uploaded_at"`
}
