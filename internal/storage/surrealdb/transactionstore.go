package surrealdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// TransactionStore implements interfaces.TransactionStore using SurrealDB.
type TransactionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// transactionRecord is the SurrealDB record shape for investment_transactions.
// Seq is the numeric transaction id; ticker_key is the normalised ticker.
type transactionRecord struct {
	Seq         int64     `json:"seq"`
	FileID      string    `json:"file_id"`
	UserID      string    `json:"user_id"`
	Channel     string    `json:"channel"`
	StockName   string    `json:"stock_name"`
	Ticker      string    `json:"ticker"`
	TickerKey   string    `json:"ticker_key"`
	Sector      string    `json:"sector"`
	Quantity    string    `json:"quantity"`
	Price       string    `json:"price"`
	Type        string    `json:"transaction_type"`
	Date        string    `json:"date"`
	Amount      string    `json:"amount"`
	PriceStatus string    `json:"price_status"`
	PriceSource string    `json:"price_source"`
	CreatedAt   time.Time `json:"created_at"`
}

type counterRecord struct {
	Value int64 `json:"value"`
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(db *surrealdb.DB, logger *common.Logger) *TransactionStore {
	return &TransactionStore{db: db, logger: logger}
}

func toTransactionRecord(t *models.Transaction) transactionRecord {
	return transactionRecord{
		Seq:         t.ID,
		FileID:      t.FileID,
		UserID:      t.UserID,
		Channel:     t.Channel,
		StockName:   t.StockName,
		Ticker:      t.Ticker,
		TickerKey:   instrument.Normalize(t.Ticker),
		Sector:      t.Sector,
		Quantity:    t.Quantity.String(),
		Price:       decimalString(t.Price),
		Type:        string(t.Type),
		Date:        t.Date.UTC().Format(models.DateLayout),
		Amount:      decimalString(t.Amount),
		PriceStatus: string(t.PriceStatus),
		PriceSource: string(t.PriceSource),
		CreatedAt:   t.CreatedAt,
	}
}

func (r transactionRecord) toModel() *models.Transaction {
	date, _ := time.Parse(models.DateLayout, r.Date)
	qty, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		qty = decimal.Zero
	}
	return &models.Transaction{
		ID:          r.Seq,
		FileID:      r.FileID,
		UserID:      r.UserID,
		Channel:     r.Channel,
		StockName:   r.StockName,
		Ticker:      r.Ticker,
		Sector:      r.Sector,
		Quantity:    qty,
		Price:       parseDecimal(r.Price),
		Type:        models.TransactionType(r.Type),
		Date:        date,
		Amount:      parseDecimal(r.Amount),
		PriceStatus: models.PriceStatus(r.PriceStatus),
		PriceSource: models.PriceSource(r.PriceSource),
		CreatedAt:   r.CreatedAt,
	}
}

func (s *TransactionStore) GetTransactions(ctx context.Context, userID, ticker string) ([]*models.Transaction, error) {
	var where []string
	vars := map[string]any{}
	if userID != "" {
		where = append(where, "user_id = $user_id")
		vars["user_id"] = userID
	}
	if ticker != "" {
		where = append(where, "ticker_key = $ticker_key")
		vars["ticker_key"] = instrument.Normalize(ticker)
	}

	sql := "SELECT * FROM investment_transactions"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY seq ASC"

	results, err := surrealdb.Query[[]transactionRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	var txns []*models.Transaction
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			txns = append(txns, r.toModel())
		}
	}
	return txns, nil
}

// nextIDs reserves n consecutive transaction ids and returns the first.
func (s *TransactionStore) nextIDs(ctx context.Context, n int) (int64, error) {
	sql := "UPSERT $rid SET value = (value OR 0) + $n RETURN AFTER"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID(tableCounters, tableTransactions),
		"n":   n,
	}
	results, err := surrealdb.Query[[]counterRecord](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve transaction ids: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, fmt.Errorf("failed to reserve transaction ids: empty counter result")
	}
	last := (*results)[0].Result[0].Value
	return last - int64(n) + 1, nil
}

func (s *TransactionStore) SaveTransactions(ctx context.Context, txns []*models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	first, err := s.nextIDs(ctx, len(txns))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for i, t := range txns {
		t.ID = first + int64(i)
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		sql := "UPSERT $rid CONTENT $record"
		vars := map[string]any{
			"rid":    surrealmodels.NewRecordID(tableTransactions, t.ID),
			"record": toTransactionRecord(t),
		}
		if _, err := surrealdb.Query[[]transactionRecord](ctx, s.db, sql, vars); err != nil {
			return fmt.Errorf("failed to save transaction for %s: %w", t.Ticker, err)
		}
	}

	s.logger.Debug().Int("count", len(txns)).Msg("Transactions saved")
	return nil
}

func (s *TransactionStore) UpdateSector(ctx context.Context, ticker, sector string) (int, error) {
	sql := "UPDATE investment_transactions SET sector = $sector WHERE ticker_key = $ticker_key AND sector != $sector RETURN AFTER"
	vars := map[string]any{
		"sector":     sector,
		"ticker_key": instrument.Normalize(ticker),
	}
	results, err := surrealdb.Query[[]transactionRecord](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to update sector for %s: %w", ticker, err)
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

func (s *TransactionStore) ListTickers(ctx context.Context, userID string) ([]string, error) {
	sql := "SELECT VALUE ticker FROM investment_transactions"
	vars := map[string]any{}
	if userID != "" {
		sql += " WHERE user_id = $user_id"
		vars["user_id"] = userID
	}

	results, err := surrealdb.Query[[]string](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}

	seen := map[string]bool{}
	var tickers []string
	if results != nil && len(*results) > 0 {
		for _, t := range (*results)[0].Result {
			if !seen[t] {
				seen[t] = true
				tickers = append(tickers, t)
			}
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

// Compile-time check
var _ interfaces.TransactionStore = (*TransactionStore)(nil)
