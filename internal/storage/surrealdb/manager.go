// Package surrealdb implements the storage interfaces on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// Table names
const (
	tableTransactions = "investment_transactions"
	tableFiles        = "investment_files"
	tableInstruments  = "stock_data"
	tableCounters     = "counters"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	transactionStore *TransactionStore
	instrumentStore  *InstrumentStore
	fileStore        *FileStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()
	sc := config.Storage.SurrealDB

	// Connect to SurrealDB
	db, err := surrealdb.New(sc.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	// Sign in
	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": sc.Username,
		"pass": sc.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	// Select namespace and database
	if err := db.Use(ctx, sc.Namespace, sc.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	if err := defineTables(ctx, db); err != nil {
		db.Close(ctx)
		return nil, err
	}

	m := &Manager{
		db:               db,
		logger:           logger,
		transactionStore: NewTransactionStore(db, logger),
		instrumentStore:  NewInstrumentStore(db, logger),
		fileStore:        NewFileStore(db, logger),
	}

	logger.Info().
		Str("address", sc.Address).
		Str("namespace", sc.Namespace).
		Str("database", sc.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// defineTables ensures every table exists (SurrealDB v3 errors on querying
// non-existent tables).
func defineTables(ctx context.Context, db *surrealdb.DB) error {
	tables := []string{tableTransactions, tableFiles, tableInstruments, tableCounters}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}
	indexes := []string{
		"DEFINE INDEX IF NOT EXISTS idx_txn_ticker_key ON investment_transactions FIELDS ticker_key",
		"DEFINE INDEX IF NOT EXISTS idx_txn_user ON investment_transactions FIELDS user_id",
		"DEFINE INDEX IF NOT EXISTS idx_files_user ON investment_files FIELDS user_id",
	}
	for _, sql := range indexes {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to define index: %w", err)
		}
	}
	return nil
}

func (m *Manager) TransactionStore() interfaces.TransactionStore {
	return m.transactionStore
}

func (m *Manager) InstrumentStore() interfaces.InstrumentStore {
	return m.instrumentStore
}

func (m *Manager) FileStore() interfaces.FileStore {
	return m.fileStore
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// tickerToID converts a ticker like "RELIANCE.NS" to a safe SurrealDB record ID.
// SurrealDB record IDs cannot contain dots, so we replace them with underscores.
func tickerToID(ticker string) string {
	return strings.ReplaceAll(ticker, ".", "_")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
