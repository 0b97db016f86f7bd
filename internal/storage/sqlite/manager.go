// Package sqlite implements the storage interfaces on an embedded SQLite
// database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// schema is applied on every open; statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS investment_files (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		filename          TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		file_hash         TEXT NOT NULL UNIQUE,
		channel           TEXT NOT NULL DEFAULT '',
		file_size         INTEGER NOT NULL DEFAULT 0,
		row_count         INTEGER NOT NULL DEFAULT 0,
		status            TEXT NOT NULL DEFAULT '',
		uploaded_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_user ON investment_files(user_id)`,
	`CREATE TABLE IF NOT EXISTS investment_transactions (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id          TEXT NOT NULL DEFAULT '',
		user_id          TEXT NOT NULL,
		channel          TEXT NOT NULL DEFAULT '',
		stock_name       TEXT NOT NULL DEFAULT '',
		ticker           TEXT NOT NULL,
		ticker_key       TEXT NOT NULL,
		sector           TEXT NOT NULL DEFAULT '',
		quantity         TEXT NOT NULL,
		price            TEXT,
		transaction_type TEXT NOT NULL,
		date             TEXT NOT NULL,
		amount           TEXT,
		price_status     TEXT NOT NULL DEFAULT '',
		price_source     TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_ticker_key ON investment_transactions(ticker_key)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_user ON investment_transactions(user_id)`,
	`CREATE TABLE IF NOT EXISTS stock_data (
		ticker       TEXT PRIMARY KEY,
		kind         TEXT NOT NULL DEFAULT '',
		name         TEXT NOT NULL DEFAULT '',
		sector       TEXT NOT NULL DEFAULT '',
		price        TEXT,
		market_cap   TEXT,
		price_source TEXT NOT NULL DEFAULT '',
		price_as_of  TEXT NOT NULL DEFAULT '',
		last_updated TEXT NOT NULL DEFAULT ''
	)`,
}

// Manager implements interfaces.StorageManager on one SQLite file.
type Manager struct {
	db     *sql.DB
	path   string
	logger *common.Logger

	transactions *TransactionStore
	instruments  *InstrumentStore
	files        *FileStore
}

// NewManager opens (creating if needed) the database at path and applies the schema.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL for concurrent readers, busy timeout for writers
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection serialises read-modify-write upserts
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	m := &Manager{db: db, path: path, logger: logger}
	m.transactions = &TransactionStore{db: db, logger: logger}
	m.instruments = &InstrumentStore{db: db, logger: logger}
	m.files = &FileStore{db: db, logger: logger}

	logger.Info().Str("path", path).Msg("SQLite storage manager initialized")
	return m, nil
}

func (m *Manager) TransactionStore() interfaces.TransactionStore {
	return m.transactions
}

func (m *Manager) InstrumentStore() interfaces.InstrumentStore {
	return m.instruments
}

func (m *Manager) FileStore() interfaces.FileStore {
	return m.files
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
