package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// TransactionStore persists investment_transactions.
type TransactionStore interface {
	// GetTransactions lists transactions ordered by id. Empty userID or
	// ticker means no filter on that field. Ticker matching is on the
	// normalised form, so RELIANCE matches RELIANCE.NS.
	GetTransactions(ctx context.Context, userID, ticker string) ([]*models.Transaction, error)

	// SaveTransactions inserts transactions and assigns their ids.
	SaveTransactions(ctx context.Context, txns []*models.Transaction) error

	// UpdateSector sets the sector on every transaction of a ticker and
	// returns the number of rows changed.
	UpdateSector(ctx context.Context, ticker, sector string) (int, error)

	// ListTickers returns the distinct tickers held, optionally for one user.
	ListTickers(ctx context.Context, userID string) ([]string, error)
}

// InstrumentStore persists the stock_data instrument cache.
type InstrumentStore interface {
	// UpsertCachedInstrument merges non-empty fields into the stored row.
	UpsertCachedInstrument(ctx context.Context, inst *models.CachedInstrument) error
	GetCachedInstrument(ctx context.Context, ticker string) (*models.CachedInstrument, error)
	ListCachedInstruments(ctx context.Context) ([]*models.CachedInstrument, error)
}

// FileStore persists investment_files.
type FileStore interface {
	// SaveFile records an imported file; a duplicate hash fails with ErrDuplicateFile.
	SaveFile(ctx context.Context, file *models.InvestmentFile) error
	GetFileByHash(ctx context.Context, hash string) (*models.InvestmentFile, error)
	ListFiles(ctx context.Context, userID string) ([]*models.InvestmentFile, error)
	// DeleteFile removes the record for hash; a missing record is not an error.
	DeleteFile(ctx context.Context, hash string) error
}

// StorageManager coordinates all storage backends
type StorageManager interface {
	TransactionStore() TransactionStore
	InstrumentStore() InstrumentStore
	FileStore() FileStore
	Close() error
}
