// Package mfapi provides a client for the mfapi.in mutual fund NAV API
package mfapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
)

const (
	DefaultBaseURL   = "https://api.mfapi.in"
	DefaultTimeout   = 20 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// navDateLayout is the dd-mm-yyyy format mfapi uses for NAV dates.
const navDateLayout = "02-01-2006"

// Client is an mfapi.in HTTP client
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new mfapi client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mfapi error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// NAV is one published net asset value
type NAV struct {
	Date time.Time
	NAV  decimal.Decimal
}

// Scheme is a mutual fund scheme with its NAVs, newest first
type Scheme struct {
	Code      string
	Name      string
	FundHouse string
	Type      string
	Category  string
	NAVs      []NAV
}

// Latest returns the newest NAV.
func (s *Scheme) Latest() (NAV, bool) {
	if s == nil || len(s.NAVs) == 0 {
		return NAV{}, false
	}
	return s.NAVs[0], true
}

type schemeResponse struct {
	Meta struct {
		FundHouse      string      `json:"fund_house"`
		SchemeType     string      `json:"scheme_type"`
		SchemeCategory string      `json:"scheme_category"`
		SchemeCode     json.Number `json:"scheme_code"`
		SchemeName     string      `json:"scheme_name"`
	} `json:"meta"`
	Data []struct {
		Date string `json:"date"`
		NAV  string `json:"nav"`
	} `json:"data"`
	Status string `json:"status"`
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("mfapi request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) scheme(ctx context.Context, path string) (*Scheme, error) {
	var resp schemeResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	s := &Scheme{
		Code:      resp.Meta.SchemeCode.String(),
		Name:      resp.Meta.SchemeName,
		FundHouse: resp.Meta.FundHouse,
		Type:      resp.Meta.SchemeType,
		Category:  resp.Meta.SchemeCategory,
		NAVs:      make([]NAV, 0, len(resp.Data)),
	}
	for _, row := range resp.Data {
		date, err := time.Parse(navDateLayout, strings.TrimSpace(row.Date))
		if err != nil {
			continue
		}
		nav, err := decimal.NewFromString(strings.TrimSpace(row.NAV))
		if err != nil || !nav.IsPositive() {
			continue
		}
		s.NAVs = append(s.NAVs, NAV{Date: date, NAV: nav})
	}
	return s, nil
}

// GetScheme retrieves the full NAV history of a scheme
func (c *Client) GetScheme(ctx context.Context, code string) (*Scheme, error) {
	return c.scheme(ctx, fmt.Sprintf("/mf/%s", code))
}

// GetLatest retrieves the latest NAV of a scheme
func (c *Client) GetLatest(ctx context.Context, code string) (*Scheme, error) {
	return c.scheme(ctx, fmt.Sprintf("/mf/%s/latest", code))
}
