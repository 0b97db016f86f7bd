package price

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// BatchOptions bounds bulk resolution.
type BatchOptions struct {
	FundChunkSize   int
	EquityChunkSize int
	MaxWorkers      int
	ChunkDelay      time.Duration
	ChunkTimeout    time.Duration
	TimeBudget      time.Duration
}

// DefaultBatchOptions returns 10 fund / 15 equity chunks, 4 workers and a 90s budget.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		FundChunkSize:   10,
		EquityChunkSize: 15,
		MaxWorkers:      4,
		ChunkDelay:      500 * time.Millisecond,
		ChunkTimeout:    30 * time.Second,
		TimeBudget:      90 * time.Second,
	}
}

// BatchOptionsFromConfig reads the batch config section, keeping defaults
// for non-positive sizes.
func BatchOptionsFromConfig(c common.BatchConfig) BatchOptions {
	o := DefaultBatchOptions()
	if c.FundChunkSize > 0 {
		o.FundChunkSize = c.FundChunkSize
	}
	if c.EquityChunkSize > 0 {
		o.EquityChunkSize = c.EquityChunkSize
	}
	if c.MaxWorkers > 0 {
		o.MaxWorkers = c.MaxWorkers
	}
	o.ChunkDelay = c.GetChunkDelay()
	o.ChunkTimeout = c.GetChunkTimeout()
	o.TimeBudget = c.GetTimeBudget()
	return o
}

// Coordinator resolves many requests at once under a wall-clock budget.
type Coordinator struct {
	resolver interfaces.PriceResolver
	opts     BatchOptions
	logger   *common.Logger
}

// NewCoordinator creates a coordinator around a single-price resolver.
func NewCoordinator(resolver interfaces.PriceResolver, opts BatchOptions, logger *common.Logger) *Coordinator {
	def := DefaultBatchOptions()
	if opts.FundChunkSize <= 0 {
		opts.FundChunkSize = def.FundChunkSize
	}
	if opts.EquityChunkSize <= 0 {
		opts.EquityChunkSize = def.EquityChunkSize
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = def.MaxWorkers
	}
	if opts.ChunkTimeout <= 0 {
		opts.ChunkTimeout = def.ChunkTimeout
	}
	if opts.TimeBudget <= 0 {
		opts.TimeBudget = def.TimeBudget
	}
	return &Coordinator{resolver: resolver, opts: opts, logger: logger}
}

// resultSet collects quotes from concurrent workers until sealed.
type resultSet struct {
	mu     sync.Mutex
	quotes models.BatchResult
	sealed bool
}

func (s *resultSet) set(req models.PriceRequest, q *models.PriceQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.quotes[req] = q
}

// seal stops accepting results and returns a copy with every request present.
func (s *resultSet) seal(requests []models.PriceRequest) models.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true

	out := make(models.BatchResult, len(requests))
	for _, req := range requests {
		out[req] = s.quotes[req]
	}
	return out
}

// ResolveBatch resolves every request and returns a map holding an entry for
// each distinct request. Entries are nil for requests that did not finish
// within budget or whose resolution panicked. A non-positive budget uses the
// configured default.
func (c *Coordinator) ResolveBatch(ctx context.Context, requests []models.PriceRequest, userID string, budget time.Duration) models.BatchResult {
	if budget <= 0 {
		budget = c.opts.TimeBudget
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	unique := dedupe(requests)
	if len(unique) == 0 {
		return models.BatchResult{}
	}
	results := &resultSet{quotes: make(models.BatchResult, len(unique))}
	chunks := c.plan(unique)

	c.logger.Info().
		Int("requests", len(requests)).
		Int("unique", len(unique)).
		Int("chunks", len(chunks)).
		Dur("budget", budget).
		Msg("Starting batch price resolution")

	sem := semaphore.NewWeighted(int64(c.opts.MaxWorkers))
	var all sync.WaitGroup

dispatch:
	for i, chunk := range chunks {
		if i > 0 && c.opts.ChunkDelay > 0 {
			select {
			case <-time.After(c.opts.ChunkDelay):
			case <-ctx.Done():
				break dispatch
			}
		}

		done := c.runChunk(ctx, chunk, userID, sem, results, &all)
		timer := time.NewTimer(c.opts.ChunkTimeout)
		select {
		case <-done:
			timer.Stop()
		case <-timer.C:
			c.logger.Warn().Int("chunk", i).Int("size", len(chunk)).Msg("Chunk stalled, moving on")
		case <-ctx.Done():
			timer.Stop()
			break dispatch
		}
	}

	// Stragglers from stalled chunks may still land before the deadline
	finished := make(chan struct{})
	go func() {
		all.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		c.logger.Warn().Dur("budget", budget).Msg("Batch time budget exhausted")
	}

	out := results.seal(unique)
	c.logger.Info().
		Int("resolved", out.Resolved()).
		Int("unresolved", len(unique)-out.Resolved()).
		Dur("elapsed", time.Since(start)).
		Msg("Batch price resolution complete")
	return out
}

// runChunk starts one goroutine per request, bounded by sem, and returns a
// channel closed when all of them have returned.
func (c *Coordinator) runChunk(ctx context.Context, chunk []models.PriceRequest, userID string, sem *semaphore.Weighted, results *resultSet, all *sync.WaitGroup) <-chan struct{} {
	var wg sync.WaitGroup
	for _, req := range chunk {
		wg.Add(1)
		all.Add(1)
		go func(req models.PriceRequest) {
			defer all.Done()
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			c.resolveOne(ctx, req, userID, results)
		}(req)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// resolveOne runs a single resolution with panic recovery.
func (c *Coordinator) resolveOne(ctx context.Context, req models.PriceRequest, userID string, results *resultSet) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("request", req.String()).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in price resolution")
			results.set(req, nil)
		}
	}()

	q := c.resolver.Resolve(ctx, req, userID)
	if ctx.Err() != nil {
		// Finished after the deadline; the request stays unresolved
		return
	}
	results.set(req, q)
}

// plan partitions requests into dispatch chunks: funds first, then equities
// grouped by target date, preserving input order within each group.
func (c *Coordinator) plan(requests []models.PriceRequest) [][]models.PriceRequest {
	var funds []models.PriceRequest
	var dates []time.Time
	equities := make(map[time.Time][]models.PriceRequest)

	for _, req := range requests {
		if instrument.Classify(req.Ticker()) == models.KindMutualFund {
			funds = append(funds, req)
			continue
		}
		date, _ := req.AsOf()
		if _, ok := equities[date]; !ok {
			dates = append(dates, date)
		}
		equities[date] = append(equities[date], req)
	}

	chunks := chunk(funds, c.opts.FundChunkSize)
	for _, d := range dates {
		chunks = append(chunks, chunk(equities[d], c.opts.EquityChunkSize)...)
	}
	return chunks
}

func chunk(reqs []models.PriceRequest, size int) [][]models.PriceRequest {
	var out [][]models.PriceRequest
	for len(reqs) > 0 {
		n := size
		if n > len(reqs) {
			n = len(reqs)
		}
		out = append(out, reqs[:n])
		reqs = reqs[n:]
	}
	return out
}

func dedupe(requests []models.PriceRequest) []models.PriceRequest {
	seen := make(map[models.PriceRequest]bool, len(requests))
	out := make([]models.PriceRequest, 0, len(requests))
	for _, req := range requests {
		if seen[req] {
			continue
		}
		seen[req] = true
		out = append(out, req)
	}
	return out
}

// Ensure Coordinator implements BatchResolver
var _ interfaces.BatchResolver = (*Coordinator)(nil)
