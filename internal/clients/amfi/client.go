// Package amfi reads the AMFI daily NAV file (NAVAll.txt)
package amfi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/folio/internal/common"
)

const (
	DefaultURL             = "https://www.amfiindia.com/spages/NAVAll.txt"
	DefaultTimeout         = 60 * time.Second
	DefaultRefreshInterval = common.FreshnessNAVFile
)

// navDateLayout is the date format of the NAV file, e.g. 17-Oct-2025.
const navDateLayout = "02-Jan-2006"

// ErrSchemeNotFound is returned when a scheme code is absent from the NAV file.
var ErrSchemeNotFound = errors.New("scheme not found in NAV file")

// Scheme is one row of the NAV file
type Scheme struct {
	Code      string
	ISIN      string
	Name      string
	Category  string // from the "Open Ended Schemes(...)" section header
	FundHouse string
	NAV       decimal.Decimal
	Date      time.Time
}

// Client downloads and caches the NAV file
type Client struct {
	url        string
	httpClient *http.Client
	logger     *common.Logger
	refresh    time.Duration
	now        func() time.Time

	group     singleflight.Group
	mu        sync.RWMutex
	schemes   map[string]Scheme
	fetchedAt time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithURL sets the NAV file URL
func WithURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRefreshInterval sets how long a downloaded file is reused
func WithRefreshInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.refresh = d
		}
	}
}

// NewClient creates a NAV file client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     common.NewSilentLogger(),
		refresh:    DefaultRefreshInterval,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError represents a failed download
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AMFI error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// GetScheme returns the latest NAV of a scheme, downloading the file when
// the cached copy is older than the refresh interval.
func (c *Client) GetScheme(ctx context.Context, code string) (*Scheme, error) {
	schemes, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := schemes[strings.TrimSpace(code)]
	if !ok {
		return nil, ErrSchemeNotFound
	}
	return &s, nil
}

// Len returns the number of schemes in the cached file.
func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.schemes)
}

func (c *Client) load(ctx context.Context) (map[string]Scheme, error) {
	c.mu.RLock()
	schemes, fetchedAt := c.schemes, c.fetchedAt
	c.mu.RUnlock()
	if schemes != nil && common.IsFreshAt(fetchedAt, c.refresh, c.now()) {
		return schemes, nil
	}

	// Concurrent callers share one download
	v, err, _ := c.group.Do("navall", func() (interface{}, error) {
		return c.download(ctx)
	})
	if err != nil {
		if schemes != nil {
			c.logger.Warn().Err(err).Msg("NAV file refresh failed, serving cached copy")
			return schemes, nil
		}
		return nil, err
	}

	fresh := v.(map[string]Scheme)
	c.mu.Lock()
	c.schemes = fresh
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return fresh, nil
}

func (c *Client) download(ctx context.Context) (map[string]Scheme, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download NAV file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: c.url}
	}

	schemes, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Int("schemes", len(schemes)).Dur("elapsed", c.now().Sub(start)).Msg("AMFI NAV file loaded")
	return schemes, nil
}

// Parse reads a NAV file. Rows are
// "code;isin growth;isin reinvest;name;nav;date"; lines without separators
// are section headers naming the category or the fund house.
func Parse(r io.Reader) (map[string]Scheme, error) {
	schemes := make(map[string]Scheme)
	var category, house string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.Contains(line, ";") {
			if open := strings.Index(line, "("); open >= 0 && strings.HasSuffix(line, ")") {
				category = strings.TrimSpace(line[open+1 : len(line)-1])
			} else {
				house = line
			}
			continue
		}

		parts := strings.Split(line, ";")
		if len(parts) < 6 {
			continue
		}
		nav, err := decimal.NewFromString(strings.TrimSpace(parts[4]))
		if err != nil || !nav.IsPositive() {
			continue // header row and "N.A." values
		}
		date, err := time.Parse(navDateLayout, strings.TrimSpace(parts[5]))
		if err != nil {
			continue
		}
		code := strings.TrimSpace(parts[0])
		schemes[code] = Scheme{
			Code:      code,
			ISIN:      strings.TrimSpace(parts[1]),
			Name:      strings.TrimSpace(parts[3]),
			Category:  category,
			FundHouse: house,
			NAV:       nav,
			Date:      date,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read NAV file: %w", err)
	}
	return schemes, nil
}
