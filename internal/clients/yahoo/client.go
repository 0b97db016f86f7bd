// Package yahoo provides a Yahoo Finance client built on go-yfinance
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"time"

	yfmodels "github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// ErrNoPrice is returned when Yahoo reports no usable price for a symbol.
var ErrNoPrice = errors.New("no price available")

// Quote is the current price of a symbol
type Quote struct {
	Symbol string
	Price  float64
	Name   string
	Time   time.Time
}

// Bar is one daily history bar
type Bar struct {
	Date  time.Time
	Close float64
}

// Info is the descriptive data of a symbol
type Info struct {
	Name      string
	Industry  string
	MarketCap float64
}

// source is the part of Yahoo Finance the client reads. The library calls
// block without a context, so the client runs them behind callWithContext.
type source interface {
	quote(symbol string) (*Quote, error)
	history(symbol, period string) ([]Bar, error)
	info(symbol string) (*Info, error)
}

// Client wraps Yahoo Finance with rate limiting and per-call timeouts
type Client struct {
	src     source
	timeout time.Duration
	limiter *rate.Limiter
	logger  *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout bounds each library call
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// withSource replaces the library backend; used by tests.
func withSource(src source) ClientOption {
	return func(c *Client) {
		c.src = src
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		src:     yfinanceSource{},
		timeout: DefaultTimeout,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// callWithContext runs fn on its own goroutine so a stuck library call
// cannot outlive ctx or the client timeout.
func callWithContext[T any](ctx context.Context, c *Client, fn func() (T, error)) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("yahoo call panicked: %v", r)}
			}
		}()
		v, err := fn()
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// GetQuote retrieves the current price of a symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	c.logger.Debug().Str("symbol", symbol).Msg("Yahoo quote request")
	return callWithContext(ctx, c, func() (*Quote, error) { return c.src.quote(symbol) })
}

// GetHistory retrieves daily bars covering from..now, oldest first
func (c *Client) GetHistory(ctx context.Context, symbol string, from time.Time) ([]Bar, error) {
	period := PeriodCovering(time.Since(from))
	c.logger.Debug().Str("symbol", symbol).Str("period", period).Msg("Yahoo history request")
	return callWithContext(ctx, c, func() ([]Bar, error) { return c.src.history(symbol, period) })
}

// GetInfo retrieves name, industry and market cap
func (c *Client) GetInfo(ctx context.Context, symbol string) (*Info, error) {
	c.logger.Debug().Str("symbol", symbol).Msg("Yahoo info request")
	return callWithContext(ctx, c, func() (*Info, error) { return c.src.info(symbol) })
}

// periods are the history ranges Yahoo accepts, smallest first.
var periods = []struct {
	name string
	span time.Duration
}{
	{"1mo", 31 * 24 * time.Hour},
	{"3mo", 92 * 24 * time.Hour},
	{"6mo", 183 * 24 * time.Hour},
	{"1y", 366 * 24 * time.Hour},
	{"2y", 731 * 24 * time.Hour},
	{"5y", 1827 * 24 * time.Hour},
	{"10y", 3653 * 24 * time.Hour},
}

// PeriodCovering returns the smallest Yahoo period reaching back at least d.
func PeriodCovering(d time.Duration) string {
	for _, p := range periods {
		if d <= p.span {
			return p.name
		}
	}
	return "max"
}

// yfinanceSource reads from Yahoo through go-yfinance.
type yfinanceSource struct{}

func (yfinanceSource) quote(symbol string) (*Quote, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	// Quote first, then Info
	if q, err := t.Quote(); err == nil && q != nil {
		for _, p := range []float64{q.RegularMarketPrice, q.PreMarketPrice, q.PostMarketPrice} {
			if p > 0 {
				return &Quote{Symbol: symbol, Price: p, Time: time.Now()}, nil
			}
		}
	}

	info, err := t.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to get info: %w", err)
	}
	name := info.LongName
	if name == "" {
		name = info.ShortName
	}
	for _, p := range []float64{info.CurrentPrice, info.RegularMarketPreviousClose} {
		if p > 0 {
			return &Quote{Symbol: symbol, Price: p, Name: name, Time: time.Now()}, nil
		}
	}
	return nil, ErrNoPrice
}

func (yfinanceSource) history(symbol, period string) ([]Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	bars, err := t.History(yfmodels.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}

	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		out = append(out, Bar{Date: b.Date, Close: b.Close})
	}
	return out, nil
}

func (yfinanceSource) info(symbol string) (*Info, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	info, err := t.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to get info: %w", err)
	}
	name := info.LongName
	if name == "" {
		name = info.ShortName
	}
	return &Info{
		Name:      name,
		Industry:  info.Industry,
		MarketCap: float64(info.MarketCap),
	}, nil
}
