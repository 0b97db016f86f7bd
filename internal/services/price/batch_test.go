package price

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// stubResolver counts calls and delegates to fn.
type stubResolver struct {
	calls atomic.Int32
	mu    sync.Mutex
	seen  map[models.PriceRequest]int
	fn    func(ctx context.Context, req models.PriceRequest) *models.PriceQuote
}

func (s *stubResolver) Resolve(ctx context.Context, req models.PriceRequest, _ string) *models.PriceQuote {
	s.calls.Add(1)
	s.mu.Lock()
	if s.seen == nil {
		s.seen = map[models.PriceRequest]int{}
	}
	s.seen[req]++
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(ctx, req)
	}
	return models.MustPriceQuote(dec("100"), day(2024, 6, 1), models.SourceProviderPrimary, 0, "stub")
}

func fastOptions() BatchOptions {
	return BatchOptions{
		FundChunkSize:   10,
		EquityChunkSize: 15,
		MaxWorkers:      4,
		ChunkDelay:      time.Millisecond,
		ChunkTimeout:    100 * time.Millisecond,
		TimeBudget:      5 * time.Second,
	}
}

func TestResolveBatch_Empty(t *testing.T) {
	c := NewCoordinator(&stubResolver{}, fastOptions(), common.NewSilentLogger())
	res := c.ResolveBatch(context.Background(), nil, "", 0)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestResolveBatch_DeduplicatesRequests(t *testing.T) {
	stub := &stubResolver{}
	c := NewCoordinator(stub, fastOptions(), common.NewSilentLogger())

	reqs := []models.PriceRequest{
		mustLive("TCS"),
		mustAt("TCS", day(2024, 1, 15)),
		mustLive("TCS"),
		mustAt("TCS", time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)),
	}
	res := c.ResolveBatch(context.Background(), reqs, "", time.Second)

	assert.Len(t, res, 2)
	assert.Equal(t, int32(2), stub.calls.Load())
	for req, n := range stub.seen {
		assert.Equal(t, 1, n, "%s resolved more than once", req)
	}
	q, ok := res.Lookup(mustLive("TCS"))
	assert.True(t, ok)
	assert.NotNil(t, q)
}

func TestResolveBatch_EveryRequestPresent(t *testing.T) {
	rig := newTestRig(txn(1, "alice", "RELIANCE", "2500", day(2024, 1, 15)))
	rig.mfPrimary.current["MF_145000"] = obs("75.2", day(2024, 5, 31), "mfapi")
	c := NewCoordinator(rig.resolver, fastOptions(), common.NewSilentLogger())

	var reqs []models.PriceRequest
	for i := 0; i < 12; i++ {
		reqs = append(reqs, mustLive(fmt.Sprintf("MF_1450%02d", i)))
	}
	for i := 0; i < 20; i++ {
		reqs = append(reqs, mustAt(fmt.Sprintf("STOCK%d", i), day(2024, 1, 15)))
	}
	reqs = append(reqs, mustAt("RELIANCE", day(2024, 1, 15)))

	res := c.ResolveBatch(context.Background(), reqs, "alice", 5*time.Second)

	require.Len(t, res, len(reqs))
	for _, req := range reqs {
		q, ok := res.Lookup(req)
		require.True(t, ok, "missing %s", req)
		require.NotNil(t, q, "unresolved %s", req)
	}
	assert.Equal(t, models.SourceProviderPrimary, res[mustLive("MF_145000")].Source())
	assert.Equal(t, models.SourceTransactionHistory, res[mustAt("RELIANCE", day(2024, 1, 15))].Source())
	assert.Equal(t, models.SourceSyntheticDefault, res[mustAt("STOCK3", day(2024, 1, 15))].Source())
}

func TestResolveBatch_HangingAdapterDegradesOneRequest(t *testing.T) {
	rig := newTestRig()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	var reqs []models.PriceRequest
	for i := 0; i < 20; i++ {
		ticker := fmt.Sprintf("EQ%02d", i)
		rig.eqPrimary.current[ticker] = obs("500", day(2024, 6, 1), "eodhd")
		reqs = append(reqs, mustLive(ticker))
	}
	rig.eqPrimary.hang["EQ05"] = release

	c := NewCoordinator(rig.resolver, fastOptions(), common.NewSilentLogger())
	start := time.Now()
	res := c.ResolveBatch(context.Background(), reqs, "", time.Second)
	elapsed := time.Since(start)

	require.Len(t, res, 20)
	assert.Equal(t, 19, res.Resolved())
	assert.Nil(t, res[mustLive("EQ05")])
	assert.Equal(t, []models.PriceRequest{mustLive("EQ05")}, res.Missing())
	assert.Less(t, elapsed, 3*time.Second, "budget must bound the batch")
}

func TestResolveBatch_PanicYieldsNilForThatRequestOnly(t *testing.T) {
	rig := newTestRig()
	rig.eqPrimary.panics["BOOM"] = true
	c := NewCoordinator(rig.resolver, fastOptions(), common.NewSilentLogger())

	reqs := []models.PriceRequest{mustLive("TCS"), mustLive("BOOM"), mustLive("INFY")}
	res := c.ResolveBatch(context.Background(), reqs, "", time.Second)

	require.Len(t, res, 3)
	assert.Nil(t, res[mustLive("BOOM")])
	assert.NotNil(t, res[mustLive("TCS")])
	assert.NotNil(t, res[mustLive("INFY")])
}

func TestResolveBatch_ResultsAreSealedAtDeadline(t *testing.T) {
	release := make(chan struct{})
	stub := &stubResolver{fn: func(ctx context.Context, req models.PriceRequest) *models.PriceQuote {
		if req.Ticker() == "SLOW" {
			<-release
		}
		return models.MustPriceQuote(dec("1"), day(2024, 6, 1), models.SourceProviderPrimary, 0, "stub")
	}}
	c := NewCoordinator(stub, fastOptions(), common.NewSilentLogger())

	res := c.ResolveBatch(context.Background(), []models.PriceRequest{mustLive("SLOW"), mustLive("FAST")}, "", 200*time.Millisecond)
	close(release)
	time.Sleep(20 * time.Millisecond)

	assert.Nil(t, res[mustLive("SLOW")], "a late result must not appear in the returned map")
	assert.NotNil(t, res[mustLive("FAST")])
}

func TestResolveBatch_DefaultBudget(t *testing.T) {
	opts := fastOptions()
	opts.TimeBudget = 150 * time.Millisecond
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stub := &stubResolver{fn: func(ctx context.Context, req models.PriceRequest) *models.PriceQuote {
		<-release
		return nil
	}}
	c := NewCoordinator(stub, opts, common.NewSilentLogger())

	start := time.Now()
	res := c.ResolveBatch(context.Background(), []models.PriceRequest{mustLive("A")}, "", 0)

	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, res, 1)
	assert.Equal(t, 0, res.Resolved())
}

func TestPlan_ChunksByKindAndDate(t *testing.T) {
	c := NewCoordinator(&stubResolver{}, fastOptions(), common.NewSilentLogger())

	var reqs []models.PriceRequest
	for i := 0; i < 23; i++ {
		reqs = append(reqs, mustLive(fmt.Sprintf("MF_%d", 120000+i)))
	}
	for i := 0; i < 16; i++ {
		reqs = append(reqs, mustAt(fmt.Sprintf("EQ%d", i), day(2024, 1, 1)))
	}
	reqs = append(reqs, mustAt("LATE", day(2024, 2, 1)))
	reqs = append(reqs, mustLive("NOW"))

	chunks := c.plan(reqs)

	sizes := make([]int, len(chunks))
	for i, ch := range chunks {
		sizes[i] = len(ch)
	}
	assert.Equal(t, []int{10, 10, 3, 15, 1, 1, 1}, sizes)
	assert.Equal(t, "LATE", chunks[5][0].Ticker())
	assert.Equal(t, "NOW", chunks[6][0].Ticker())
}

func TestBatchOptionsFromConfig(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Batch.FundChunkSize = 0
	cfg.Batch.MaxWorkers = 8
	cfg.Batch.TimeBudget = "45s"

	o := BatchOptionsFromConfig(cfg.Batch)
	assert.Equal(t, 10, o.FundChunkSize)
	assert.Equal(t, 8, o.MaxWorkers)
	assert.Equal(t, 45*time.Second, o.TimeBudget)
}

func TestLiveCache(t *testing.T) {
	c := NewLiveCache(time.Minute)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("TCS", models.MustPriceQuote(dec("1"), now, models.SourceProviderPrimary, 0, ""))
	c.Put("TCS", models.MustPriceQuote(dec("2"), now, models.SourceProviderSecondary, 0, ""))
	c.Put("XYZ", models.MustPriceQuote(dec("1000"), now, models.SourceSyntheticDefault, 0, ""))

	require.NotNil(t, c.Get("tcs"))
	assert.True(t, c.Get("TCS").Price().Equal(dec("2")), "last write wins")
	assert.Nil(t, c.Get("XYZ"))
	assert.Equal(t, 1, c.Len())

	now = now.Add(time.Minute)
	assert.Nil(t, c.Get("TCS"))
	assert.Equal(t, 0, c.Len())
}
