// Package eodhd provides a quote client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/models"
)

// flexFloat64 handles JSON values that may be a number, a numeric string,
// or a placeholder such as "NA". Valid is false when no number was present.
type flexFloat64 struct {
	Value float64
	Valid bool
}

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	*f = flexFloat64{}
	if string(data) == "null" {
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64{Value: num, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "NA" || s == "N/A" {
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		*f = flexFloat64{Value: num, Valid: true}
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

func (f flexFloat64) ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	// ProviderName identifies this provider in logs and snapshots
	ProviderName = "eodhd"
)

// Client implements interfaces.QuoteProvider
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
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

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
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
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name returns the provider name
func (c *Client) Name() string {
	return ProviderName
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

type realTimeResponse struct {
	Code          string      `json:"code"`
	Close         flexFloat64 `json:"close"`
	PreviousClose flexFloat64 `json:"previousClose"`
}

type fundamentalsResponse struct {
	General struct {
		Code   string `json:"Code"`
		Name   string `json:"Name"`
		Sector string `json:"Sector"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization flexFloat64 `json:"MarketCapitalization"`
		EarningsShare        flexFloat64 `json:"EarningsShare"`
		DividendShare        flexFloat64 `json:"DividendShare"`
	} `json:"Highlights"`
	SharesStats struct {
		SharesOutstanding flexFloat64 `json:"SharesOutstanding"`
		PercentInsiders   flexFloat64 `json:"PercentInsiders"`
	} `json:"SharesStats"`
	Technicals struct {
		ShortRatio flexFloat64 `json:"ShortRatio"`
	} `json:"Technicals"`
}

// FetchQuote combines the real-time quote (previous close) with fundamentals.
// EODHD tickers carry an exchange suffix; bare symbols are treated as US.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.QuoteFields, error) {
	ticker := symbol
	if !strings.Contains(ticker, ".") {
		ticker += ".US"
	}

	var rt realTimeResponse
	if err := c.get(ctx, "/real-time/"+url.PathEscape(ticker), nil, &rt); err != nil {
		return nil, c.lift(err, symbol)
	}
	// Unknown tickers come back as 200 with "NA" prices
	if !rt.PreviousClose.Valid && !rt.Close.Valid {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownSymbol, symbol)
	}

	var f fundamentalsResponse
	if err := c.get(ctx, "/fundamentals/"+url.PathEscape(ticker), nil, &f); err != nil {
		return nil, c.lift(err, symbol)
	}

	q := &models.QuoteFields{
		Symbol:            symbol,
		PreviousClose:     rt.PreviousClose.ptr(),
		TrailingEps:       f.Highlights.EarningsShare.ptr(),
		MarketCap:         f.Highlights.MarketCapitalization.ptr(),
		ShortRatio:        f.Technicals.ShortRatio.ptr(),
		SharesOutstanding: f.SharesStats.SharesOutstanding.ptr(),
	}
	if f.General.Name != "" {
		name := f.General.Name
		q.ShortName = &name
	}
	if f.General.Sector != "" {
		sector := f.General.Sector
		q.Sector = &sector
	}
	if f.Highlights.DividendShare.Valid && f.Highlights.DividendShare.Value > 0 {
		q.DividendRate = f.Highlights.DividendShare.ptr()
	}
	// EODHD reports insider holdings in percent; QuoteFields carries a fraction
	if f.SharesStats.PercentInsiders.Valid {
		frac := f.SharesStats.PercentInsiders.Value / 100
		q.HeldPercentInsiders = &frac
	}

	return q, nil
}

func (c *Client) lift(err error, symbol string) error {
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", common.ErrUnknownSymbol, symbol)
	}
	c.logger.Warn().Str("symbol", symbol).Err(err).Msg("EODHD quote request failed")
	return err
}

// wait blocks on the rate limiter. The limiter refuses up front a wait that
// would overrun the ctx deadline; that refusal is reported as a deadline error.
func (c *Client) wait(ctx context.Context) error {
	err := c.limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil {
		if _, ok := ctx.Deadline(); ok {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
	}
	return fmt.Errorf("rate limit wait: %w", err)
}
