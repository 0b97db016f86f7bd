package price

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// --- Fakes ---

type fakeAdapter struct {
	name       string
	current    map[string]*models.ProviderPrice
	historical map[string]*models.ProviderPrice
	hang       map[string]chan struct{} // ticker -> blocks until closed
	panics     map[string]bool
	calls      atomic.Int32
}

func newFakeAdapter(name string) *fakeAdapter {
	return &fakeAdapter{
		name:       name,
		current:    map[string]*models.ProviderPrice{},
		historical: map[string]*models.ProviderPrice{},
		hang:       map[string]chan struct{}{},
		panics:     map[string]bool{},
	}
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) FetchCurrent(_ context.Context, ticker string) *models.ProviderPrice {
	f.calls.Add(1)
	f.block(ticker)
	return f.current[ticker]
}

func (f *fakeAdapter) FetchHistorical(_ context.Context, ticker string, _ time.Time) *models.ProviderPrice {
	f.calls.Add(1)
	f.block(ticker)
	return f.historical[ticker]
}

func (f *fakeAdapter) block(ticker string) {
	if f.panics[ticker] {
		panic("adapter exploded for " + ticker)
	}
	if ch, ok := f.hang[ticker]; ok {
		<-ch
	}
}

type fakeTransactionStore struct {
	txns []*models.Transaction
	err  error
}

func (f *fakeTransactionStore) GetTransactions(_ context.Context, userID, ticker string) ([]*models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Transaction
	for _, t := range f.txns {
		if userID != "" && t.UserID != userID {
			continue
		}
		if ticker != "" && instrument.Normalize(t.Ticker) != instrument.Normalize(ticker) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTransactionStore) SaveTransactions(_ context.Context, txns []*models.Transaction) error {
	f.txns = append(f.txns, txns...)
	return nil
}

func (f *fakeTransactionStore) UpdateSector(_ context.Context, _, _ string) (int, error) {
	return 0, nil
}

func (f *fakeTransactionStore) ListTickers(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

type fakeInstrumentStore struct {
	mu    sync.Mutex
	items map[string]*models.CachedInstrument
	err   error
}

func newFakeInstrumentStore() *fakeInstrumentStore {
	return &fakeInstrumentStore{items: map[string]*models.CachedInstrument{}}
}

func (f *fakeInstrumentStore) UpsertCachedInstrument(_ context.Context, inst *models.CachedInstrument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	key := strings.ToUpper(inst.Ticker)
	if existing, ok := f.items[key]; ok {
		existing.Merge(inst)
		return nil
	}
	cp := *inst
	f.items[key] = &cp
	return nil
}

func (f *fakeInstrumentStore) GetCachedInstrument(_ context.Context, ticker string) (*models.CachedInstrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.items[strings.ToUpper(ticker)]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return inst, nil
}

func (f *fakeInstrumentStore) ListCachedInstruments(_ context.Context) ([]*models.CachedInstrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CachedInstrument
	for _, inst := range f.items {
		out = append(out, inst)
	}
	return out, nil
}

// --- Helpers ---

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func obs(price string, asOf time.Time, provider string) *models.ProviderPrice {
	return &models.ProviderPrice{Price: dec(price), AsOf: asOf, Provider: provider}
}

func txn(id int64, user, ticker, price string, date time.Time) *models.Transaction {
	return &models.Transaction{
		ID:       id,
		UserID:   user,
		Ticker:   ticker,
		Quantity: decimal.NewFromInt(1),
		Price:    decPtr(price),
		Type:     models.TransactionBuy,
		Date:     date,
	}
}

func mustLive(ticker string) models.PriceRequest {
	req, err := models.LiveRequest(ticker)
	if err != nil {
		panic(err)
	}
	return req
}

func mustAt(ticker string, date time.Time) models.PriceRequest {
	req, err := models.HistoricalRequest(ticker, date)
	if err != nil {
		panic(err)
	}
	return req
}
