// Package yahoo provides a quote client for the Yahoo Finance quoteSummary API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 2 // requests per second
	DefaultUserAgent = "Mozilla/5.0 (compatible; tickerboard/1.0)"

	// ProviderName identifies this provider in logs and snapshots
	ProviderName = "yahoo"
)

// summaryModules are the quoteSummary modules that carry the quote fields.
var summaryModules = []string{"price", "summaryDetail", "assetProfile", "defaultKeyStatistics"}

// Client implements interfaces.QuoteProvider
type Client struct {
	baseURL    string
	userAgent  string
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

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
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

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
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

// APIError represents a non-200 response
type APIError struct {
	StatusCode int
	Message    string
	Symbol     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Yahoo Finance API error: %s (status: %d, symbol: %s)", e.Message, e.StatusCode, e.Symbol)
}

// Name returns the provider name
func (c *Client) Name() string {
	return ProviderName
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} envelope. Missing values
// arrive as {} so Raw stays nil.
type rawValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

func (v *rawValue) value() *float64 {
	if v == nil {
		return nil
	}
	return v.Raw
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	Price *struct {
		ShortName *string   `json:"shortName"`
		MarketCap *rawValue `json:"marketCap"`
	} `json:"price"`
	SummaryDetail *struct {
		PreviousClose *rawValue `json:"previousClose"`
		DividendRate  *rawValue `json:"dividendRate"`
		MarketCap     *rawValue `json:"marketCap"`
	} `json:"summaryDetail"`
	AssetProfile *struct {
		Sector *string `json:"sector"`
	} `json:"assetProfile"`
	DefaultKeyStatistics *struct {
		TrailingEps         *rawValue `json:"trailingEps"`
		HeldPercentInsiders *rawValue `json:"heldPercentInsiders"`
		ShortRatio          *rawValue `json:"shortRatio"`
		SharesOutstanding   *rawValue `json:"sharesOutstanding"`
	} `json:"defaultKeyStatistics"`
}

// FetchQuote retrieves the quote fields for symbol. Fields Yahoo omits are nil.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.QuoteFields, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		c.baseURL, url.PathEscape(symbol), strings.Join(summaryModules, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("symbol", symbol).Msg("Yahoo quoteSummary request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownSymbol, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Symbol: symbol}
	}

	var payload summaryResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if e := payload.QuoteSummary.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", common.ErrUnknownSymbol, symbol)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: e.Description, Symbol: symbol}
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownSymbol, symbol)
	}

	return toQuoteFields(symbol, &payload.QuoteSummary.Result[0]), nil
}

func toQuoteFields(symbol string, r *summaryResult) *models.QuoteFields {
	q := &models.QuoteFields{Symbol: symbol}

	if p := r.Price; p != nil {
		q.ShortName = p.ShortName
		q.MarketCap = p.MarketCap.value()
	}
	if s := r.SummaryDetail; s != nil {
		q.PreviousClose = s.PreviousClose.value()
		q.DividendRate = s.DividendRate.value()
		if q.MarketCap == nil {
			q.MarketCap = s.MarketCap.value()
		}
	}
	if a := r.AssetProfile; a != nil {
		q.Sector = a.Sector
	}
	if k := r.DefaultKeyStatistics; k != nil {
		q.TrailingEps = k.TrailingEps.value()
		q.HeldPercentInsiders = k.HeldPercentInsiders.value()
		q.ShortRatio = k.ShortRatio.value()
		q.SharesOutstanding = k.SharesOutstanding.value()
	}
	return q
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
