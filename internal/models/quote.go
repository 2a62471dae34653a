package models

import "time"

// QuoteFields is the raw provider response. A nil pointer means the
// provider did not return the field.
type QuoteFields struct {
	Symbol              string   `json:"symbol"`
	ShortName           *string  `json:"shortName,omitempty"`
	Sector              *string  `json:"sector,omitempty"`
	PreviousClose       *float64 `json:"previousClose,omitempty"`
	TrailingEps         *float64 `json:"trailingEps,omitempty"`
	HeldPercentInsiders *float64 `json:"heldPercentInsiders,omitempty"` // fraction, 0.05 = 5%
	DividendRate        *float64 `json:"dividendRate,omitempty"`
	ShortRatio          *float64 `json:"shortRatio,omitempty"`
	MarketCap           *float64 `json:"marketCap,omitempty"`
	SharesOutstanding   *float64 `json:"sharesOutstanding,omitempty"`
}

// DividendPlaceholder is shown when the provider omits dividendRate.
const DividendPlaceholder = "-"

// QuoteSnapshot is validated live quote metadata for one symbol.
// It is rebuilt on every request and never cached.
type QuoteSnapshot struct {
	Symbol                 string    `json:"symbol"`
	ShortName              string    `json:"short_name"`
	Sector                 string    `json:"sector"`
	PreviousClose          float64   `json:"previous_close"`
	TrailingEps            float64   `json:"trailing_eps"`
	HeldPercentInsiders    float64   `json:"held_percent_insiders"`
	HeldPercentInsidersPct float64   `json:"held_percent_insiders_pct"`
	DividendRate           string    `json:"dividend_rate"`
	ShortRatio             float64   `json:"short_ratio"`
	MarketCap              float64   `json:"market_cap"`
	MarketCapBillions      float64   `json:"market_cap_billions"`
	SharesOutstanding      *float64  `json:"shares_outstanding,omitempty"`
	Provider               string    `json:"provider"`
	FetchedAt              time.Time `json:"fetched_at"`
}
