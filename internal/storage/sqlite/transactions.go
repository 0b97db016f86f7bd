package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const transactionColumns = `id, file_id, user_id, channel, stock_name, ticker, sector, quantity,
	price, transaction_type, date, amount, price_status, price_source, created_at`

// TransactionStore implements interfaces.TransactionStore on investment_transactions.
// Each row carries ticker_key, the normalised ticker used for matching.
type TransactionStore struct {
	db     *sql.DB
	logger *common.Logger
}

func (s *TransactionStore) GetTransactions(ctx context.Context, userID, ticker string) ([]*models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if userID != "" {
		where = append(where, "user_id = ?")
		args = append(args, userID)
	}
	if ticker != "" {
		where = append(where, "ticker_key = ?")
		args = append(args, instrument.Normalize(ticker))
	}

	query := "SELECT " + transactionColumns + " FROM investment_transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanTransaction(rows *sql.Rows) (*models.Transaction, error) {
	var (
		t                         models.Transaction
		quantity, txType, date    string
		status, source, createdAt string
		price, amount             sql.NullString
	)
	if err := rows.Scan(&t.ID, &t.FileID, &t.UserID, &t.Channel, &t.StockName, &t.Ticker, &t.Sector,
		&quantity, &price, &txType, &date, &amount, &status, &source, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return nil, fmt.Errorf("transaction %d has invalid quantity %q: %w", t.ID, quantity, err)
	}
	t.Quantity = q
	t.Price = parseNullDecimal(price)
	t.Amount = parseNullDecimal(amount)
	t.Type = models.TransactionType(txType)
	t.Date = parseDate(date)
	t.PriceStatus = models.PriceStatus(status)
	t.PriceSource = models.PriceSource(source)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

// SaveTransactions inserts all rows in one database transaction.
func (s *TransactionStore) SaveTransactions(ctx context.Context, txns []*models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO investment_transactions
		(file_id, user_id, channel, stock_name, ticker, ticker_key, sector, quantity,
		 price, transaction_type, date, amount, price_status, price_source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, t := range txns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		res, err := stmt.ExecContext(ctx, t.FileID, t.UserID, t.Channel, t.StockName, t.Ticker,
			instrument.Normalize(t.Ticker), t.Sector, t.Quantity.String(), nullDecimal(t.Price),
			string(t.Type), formatDate(t.Date), nullDecimal(t.Amount), string(t.PriceStatus),
			string(t.PriceSource), formatTime(t.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert transaction for %s: %w", t.Ticker, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read transaction id: %w", err)
		}
		t.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}
	s.logger.Debug().Int("count", len(txns)).Msg("Transactions saved")
	return nil
}

func (s *TransactionStore) UpdateSector(ctx context.Context, ticker, sector string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE investment_transactions SET sector = ? WHERE ticker_key = ? AND sector <> ?`,
		sector, instrument.Normalize(ticker), sector)
	if err != nil {
		return 0, fmt.Errorf("failed to update sector for %s: %w", ticker, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

func (s *TransactionStore) ListTickers(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT DISTINCT ticker FROM investment_transactions`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY ticker`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

var _ interfaces.TransactionStore = (*TransactionStore)(nil)
