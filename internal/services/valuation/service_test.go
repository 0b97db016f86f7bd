package valuation

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

type fakeTransactions struct {
	txns []*models.Transaction
}

func (f *fakeTransactions) GetTransactions(_ context.Context, userID, _ string) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, t := range f.txns {
		if userID == "" || t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f *fakeTransactions) SaveTransactions(context.Context, []*models.Transaction) error { return nil }
func (f *fakeTransactions) UpdateSector(context.Context, string, string) (int, error)   { return 0, nil }
func (f *fakeTransactions) ListTickers(context.Context, string) ([]string, error)        { return nil, nil }

type fakeInstruments struct{}

func (fakeInstruments) UpsertCachedInstrument(context.Context, *models.CachedInstrument) error {
	return nil
}
func (fakeInstruments) GetCachedInstrument(_ context.Context, ticker string) (*models.CachedInstrument, error) {
	if ticker == "INFY" {
		return &models.CachedInstrument{Ticker: "INFY", Sector: "IT Services"}, nil
	}
	return nil, interfaces.ErrNotFound
}
func (fakeInstruments) ListCachedInstruments(context.Context) ([]*models.CachedInstrument, error) {
	return nil, nil
}

// fakeBatch prices from a fixed table; missing tickers are left nil.
type fakeBatch struct {
	prices map[string]*models.PriceQuote
}

func (f *fakeBatch) ResolveBatch(_ context.Context, reqs []models.PriceRequest, _ string, _ time.Duration) models.BatchResult {
	res := models.BatchResult{}
	for _, r := range reqs {
		res[r] = f.prices[r.Ticker()]
	}
	return res
}

var asOf = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func quote(price string, src models.PriceSource) *models.PriceQuote {
	return models.MustPriceQuote(dec(price), asOf, src, 0, "test")
}

func buy(ticker, qty, price, channel string) *models.Transaction {
	return &models.Transaction{UserID: "alice", Ticker: ticker, Quantity: dec(qty), Price: decPtr(price),
		Type: models.TransactionBuy, Channel: channel, Date: asOf.AddDate(0, -1, 0)}
}

func sell(ticker, qty, price, channel string) *models.Transaction {
	return &models.Transaction{UserID: "alice", Ticker: ticker, Quantity: dec(qty), Price: decPtr(price),
		Type: models.TransactionSell, Channel: channel, Date: asOf}
}

func TestGetValuation(t *testing.T) {
	txns := &fakeTransactions{txns: []*models.Transaction{
		buy("TCS", "10", "3000", "zerodha"),
		buy("TCS.NS", "10", "3400", "groww"),
		sell("TCS", "5", "3600", "zerodha"),
		buy("INFY", "20", "1500", "zerodha"),
		buy("MF_120503", "100", "50", "groww"),
		buy("ZZSOLD", "1", "10", "zerodha"),
		sell("ZZSOLD", "1", "12", "zerodha"),
	}}
	batch := &fakeBatch{prices: map[string]*models.PriceQuote{
		"TCS":       quote("3500", models.SourceProviderPrimary),
		"INFY":      quote("1400", models.SourceTransactionHistory),
		"MF_120503": quote("50", models.SourceSyntheticDefault),
	}}
	svc := NewService(txns, fakeInstruments{}, batch, time.Second, common.NewSilentLogger())

	v, err := svc.GetValuation(context.Background(), "alice")
	require.NoError(t, err)

	require.Len(t, v.Holdings, 3, "closed positions are dropped")
	assert.Equal(t, "INR", v.Currency)

	tcs := v.Holdings[0]
	assert.Equal(t, "TCS", tcs.Ticker)
	assert.True(t, tcs.Quantity.Equal(dec("15")))
	// 64000 invested, 5 sold at the 3200 average
	assert.True(t, tcs.Invested.Equal(dec("48000")), "invested %s", tcs.Invested)
	assert.True(t, tcs.CurrentValue.Equal(dec("52500")))
	assert.True(t, tcs.PnL.Equal(dec("4500")))
	assert.Equal(t, []string{"groww", "zerodha"}, tcs.Channels)
	assert.Equal(t, models.ConfidenceLive, tcs.Confidence)
	assert.Equal(t, "Technology", tcs.Sector)
	assert.Equal(t, "₹52,500.00", tcs.DisplayValue)
	assert.Equal(t, "+₹4,500.00", tcs.DisplayPnL)

	infy := v.Holdings[1]
	assert.Equal(t, "IT Services", infy.Sector, "sector from the instrument cache")
	assert.Equal(t, models.ConfidenceHistory, infy.Confidence)
	assert.True(t, infy.PnL.Equal(dec("-2000")))

	mf := v.Holdings[2]
	assert.Equal(t, models.KindMutualFund, mf.Kind)
	assert.Equal(t, models.SectorMutualFunds, mf.Sector)
	assert.Equal(t, models.ConfidenceEstimated, mf.Confidence)
	assert.Equal(t, 1, v.EstimatedHoldings)

	assert.True(t, v.TotalValue.Equal(dec("85500")))
	assert.True(t, v.TotalInvested.Equal(dec("83000")))
	require.NotEmpty(t, v.BySector)
	assert.Equal(t, "Technology", v.BySector[0].Label)

	var channelTotal decimal.Decimal
	for _, s := range v.ByChannel {
		channelTotal = channelTotal.Add(s.Value)
	}
	assert.True(t, channelTotal.Equal(v.TotalValue), "channel slices sum to total")
}

func TestGetValuation_UnpricedHoldingCarriedAtCost(t *testing.T) {
	txns := &fakeTransactions{txns: []*models.Transaction{buy("NEWCO", "4", "250", "")}}
	svc := NewService(txns, fakeInstruments{}, &fakeBatch{}, time.Second, common.NewSilentLogger())

	v, err := svc.GetValuation(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, v.Holdings, 1)
	h := v.Holdings[0]
	assert.Nil(t, h.CurrentPrice)
	assert.True(t, h.CurrentValue.Equal(dec("1000")))
	assert.Equal(t, "-", h.DisplayPnL)
	assert.Equal(t, []string{"direct"}, h.Channels)
	assert.Equal(t, 1, v.EstimatedHoldings)
}

func TestGetValuation_Empty(t *testing.T) {
	svc := NewService(&fakeTransactions{}, fakeInstruments{}, &fakeBatch{}, time.Second, common.NewSilentLogger())
	v, err := svc.GetValuation(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, v.Holdings)
	assert.True(t, v.TotalValue.IsZero())
	assert.True(t, v.TotalPnLPercent.IsZero())
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹1,234.50", FormatINR(dec("1234.5")))
	assert.Equal(t, "₹0.01", FormatINR(dec("0.005")))
	assert.Equal(t, "-", FormatSignedINR(decimal.Zero))
	assert.Equal(t, "-₹10.00", FormatSignedINR(dec("-10")))
}

func TestRenderAllocationChart(t *testing.T) {
	var slices []models.AllocationSlice
	for i := 0; i < 12; i++ {
		slices = append(slices, models.AllocationSlice{
			Label:   fmt.Sprintf("Sector %d", i),
			Value:   decimal.NewFromInt(int64(1000 - i*50)),
			Percent: decimal.NewFromInt(8),
		})
	}

	png, err := RenderAllocationChart("Allocation by sector", slices)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	folded := foldSmall(slices, maxSlices)
	require.Len(t, folded, maxSlices)
	assert.Equal(t, "Other", folded[maxSlices-1].Label)
}

func TestRenderAllocationChart_Empty(t *testing.T) {
	_, err := RenderAllocationChart("x", nil)
	assert.Error(t, err)
}
