package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const instrumentColumns = `ticker, kind, name, sector, price, market_cap, price_source, price_as_of, last_updated`

// InstrumentStore implements interfaces.InstrumentStore on stock_data.
type InstrumentStore struct {
	db     *sql.DB
	logger *common.Logger
}

func instrumentKey(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// UpsertCachedInstrument reads the stored row, merges inst into it and
// writes it back inside one transaction.
func (s *InstrumentStore) UpsertCachedInstrument(ctx context.Context, inst *models.CachedInstrument) error {
	key := instrumentKey(inst.Ticker)
	if key == "" {
		return fmt.Errorf("instrument ticker is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+instrumentColumns+" FROM stock_data WHERE ticker = ?", key)
	merged, err := scanInstrument(row)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		cp := *inst
		cp.Ticker = key
		merged = &cp
	case err != nil:
		return err
	default:
		merged.Merge(inst)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO stock_data (`+instrumentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			kind = excluded.kind, name = excluded.name, sector = excluded.sector,
			price = excluded.price, market_cap = excluded.market_cap,
			price_source = excluded.price_source, price_as_of = excluded.price_as_of,
			last_updated = excluded.last_updated`,
		key, string(merged.Kind), merged.Name, merged.Sector, nullDecimal(merged.Price),
		nullDecimal(merged.MarketCap), string(merged.PriceSource), formatTime(merged.PriceAsOf),
		formatTime(merged.LastUpdated))
	if err != nil {
		return fmt.Errorf("failed to upsert instrument %s: %w", key, err)
	}
	return tx.Commit()
}

func (s *InstrumentStore) GetCachedInstrument(ctx context.Context, ticker string) (*models.CachedInstrument, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+instrumentColumns+" FROM stock_data WHERE ticker = ?", instrumentKey(ticker))
	return scanInstrument(row)
}

func (s *InstrumentStore) ListCachedInstruments(ctx context.Context) ([]*models.CachedInstrument, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+instrumentColumns+" FROM stock_data ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	defer rows.Close()

	var out []*models.CachedInstrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstrument(row scanner) (*models.CachedInstrument, error) {
	var (
		inst                   models.CachedInstrument
		kind, source           string
		priceAsOf, lastUpdated string
		price, marketCap       sql.NullString
	)
	err := row.Scan(&inst.Ticker, &kind, &inst.Name, &inst.Sector, &price, &marketCap, &source, &priceAsOf, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan instrument: %w", err)
	}
	inst.Kind = models.InstrumentKind(kind)
	inst.Price = parseNullDecimal(price)
	inst.MarketCap = parseNullDecimal(marketCap)
	inst.PriceSource = models.PriceSource(source)
	inst.PriceAsOf = parseTime(priceAsOf)
	inst.LastUpdated = parseTime(lastUpdated)
	return &inst, nil
}

var _ interfaces.InstrumentStore = (*InstrumentStore)(nil)
