package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// InstrumentStore implements interfaces.InstrumentStore using SurrealDB.
type InstrumentStore struct {
	db     *surrealdb.DB
	logger *common.Logger
	mu     sync.Mutex // serialises read-merge-write upserts
}

// instrumentRecord is the SurrealDB record shape for stock_data.
type instrumentRecord struct {
	Ticker      string    `json:"ticker"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Sector      string    `json:"sector"`
	Price       string    `json:"price"`
	MarketCap   string    `json:"market_cap"`
	PriceSource string    `json:"price_source"`
	PriceAsOf   time.Time `json:"price_as_of"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewInstrumentStore creates a new InstrumentStore.
func NewInstrumentStore(db *surrealdb.DB, logger *common.Logger) *InstrumentStore {
	return &InstrumentStore{db: db, logger: logger}
}

func instrumentKey(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func toInstrumentRecord(c *models.CachedInstrument) instrumentRecord {
	return instrumentRecord{
		Ticker:      c.Ticker,
		Kind:        string(c.Kind),
		Name:        c.Name,
		Sector:      c.Sector,
		Price:       decimalString(c.Price),
		MarketCap:   decimalString(c.MarketCap),
		PriceSource: string(c.PriceSource),
		PriceAsOf:   c.PriceAsOf,
		LastUpdated: c.LastUpdated,
	}
}

func (r instrumentRecord) toModel() *models.CachedInstrument {
	return &models.CachedInstrument{
		Ticker:      r.Ticker,
		Kind:        models.InstrumentKind(r.Kind),
		Name:        r.Name,
		Sector:      r.Sector,
		Price:       parseDecimal(r.Price),
		MarketCap:   parseDecimal(r.MarketCap),
		PriceSource: models.PriceSource(r.PriceSource),
		PriceAsOf:   r.PriceAsOf,
		LastUpdated: r.LastUpdated,
	}
}

func (s *InstrumentStore) UpsertCachedInstrument(ctx context.Context, inst *models.CachedInstrument) error {
	key := instrumentKey(inst.Ticker)
	if key == "" {
		return fmt.Errorf("instrument ticker is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if merged == nil {
		cp := *inst
		merged = &cp
	} else {
		merged.Merge(inst)
	}
	merged.Ticker = key

	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID(tableInstruments, tickerToID(key)),
		"record": toInstrumentRecord(merged),
	}
	if _, err := surrealdb.Query[[]instrumentRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert instrument %s: %w", key, err)
	}
	return nil
}

func (s *InstrumentStore) GetCachedInstrument(ctx context.Context, ticker string) (*models.CachedInstrument, error) {
	inst, err := s.get(ctx, instrumentKey(ticker))
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, interfaces.ErrNotFound
	}
	return inst, nil
}

// get returns nil without error when the record does not exist.
func (s *InstrumentStore) get(ctx context.Context, key string) (*models.CachedInstrument, error) {
	sql := "SELECT * FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID(tableInstruments, tickerToID(key)),
	}
	results, err := surrealdb.Query[[]instrumentRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument %s: %w", key, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return (*results)[0].Result[0].toModel(), nil
}

func (s *InstrumentStore) ListCachedInstruments(ctx context.Context) ([]*models.CachedInstrument, error) {
	sql := "SELECT * FROM stock_data ORDER BY ticker ASC"
	results, err := surrealdb.Query[[]instrumentRecord](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}

	var out []*models.CachedInstrument
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			out = append(out, r.toModel())
		}
	}
	return out, nil
}

// Compile-time check
var _ interfaces.InstrumentStore = (*InstrumentStore)(nil)
