package price

import (
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/models"
)

type cacheEntry struct {
	quote    *models.PriceQuote
	storedAt time.Time
}

// LiveCache holds recent current-price quotes per ticker. Entries expire
// after the TTL and concurrent writers for the same ticker overwrite each
// other, last write wins.
type LiveCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewLiveCache creates a cache. A non-positive ttl uses common.FreshnessLivePrice.
func NewLiveCache(ttl time.Duration) *LiveCache {
	if ttl <= 0 {
		ttl = common.FreshnessLivePrice
	}
	return &LiveCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Get returns the cached quote, or nil when absent or expired.
func (c *LiveCache) Get(ticker string) *models.PriceQuote {
	key := cacheKey(ticker)
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if !common.IsFreshAt(e.storedAt, c.ttl, c.now()) {
		delete(c.entries, key)
		return nil
	}
	return e.quote
}

// Put stores a quote. Synthetic quotes are never cached.
func (c *LiveCache) Put(ticker string, q *models.PriceQuote) {
	if q == nil || q.Source().IsEstimate() {
		return
	}
	c.mu.Lock()
	c.entries[cacheKey(ticker)] = cacheEntry{quote: q, storedAt: c.now()}
	c.mu.Unlock()
}

// Delete drops the entries for tickers, matching exchange-suffixed spellings
// of the same symbol.
func (c *LiveCache) Delete(tickers ...string) {
	drop := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		drop[instrument.Normalize(t)] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if drop[instrument.Normalize(k)] {
			delete(c.entries, k)
		}
	}
}

// Len counts unexpired entries, dropping expired ones as it goes.
func (c *LiveCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !common.IsFreshAt(e.storedAt, c.ttl, now) {
			delete(c.entries, k)
		}
	}
	return len(c.entries)
}

// Clear empties the cache.
func (c *LiveCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
