// Package models defines data structures for tickerboard
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// QueryID identifies one of the fixed warehouse queries.
type QueryID string

const (
	QueryPrices                 QueryID = "prices"
	QueryInsiderTransactions    QueryID = "insider_transactions"
	QueryInsiderPurchases       QueryID = "insider_purchases"
	QueryInsiderRoster          QueryID = "insider_roster"
	QueryAnalystChanges         QueryID = "analyst_changes"
	QueryAnalystRecommendations QueryID = "analyst_recommendations"
)

// AllQueries lists every query identity in display order.
func AllQueries() []QueryID {
	return []QueryID{
		QueryPrices,
		QueryInsiderTransactions,
		QueryInsiderPurchases,
		QueryInsiderRoster,
		QueryAnalystChanges,
		QueryAnalystRecommendations,
	}
}

// Valid reports whether q is one of the six known queries.
func (q QueryID) Valid() bool {
	for _, known := range AllQueries() {
		if q == known {
			return true
		}
	}
	return false
}

// Warehouse column names used by the views.
const (
	ColPriceTicker = "Ticker"
	ColPriceDate   = "Date"
	ColPrice       = "Price"

	ColSymbol          = "symbol"
	ColFormattedDate   = "formatted_date"
	ColTransactionType = "transaction_type"
	ColCount           = "cnt"
	ColQuantity        = "quantity"

	ColName                = "name"
	ColPosition            = "position"
	ColSharesOwnedDirectly = "shares_owned_directly"

	ColDate      = "date"
	ColFirm      = "firm"
	ColFromGrade = "from_grade"
	ColToGrade   = "to_grade"
	ColAction    = "action"

	ColPeriod     = "period"
	ColStrongBuy  = "strong_buy"
	ColBuy        = "buy"
	ColHold       = "hold"
	ColSell       = "sell"
	ColStrongSell = "strong_sell"
)

// RatingColumns are the analyst recommendation buckets, strongest buy first.
var RatingColumns = []string{ColStrongBuy, ColBuy, ColHold, ColSell, ColStrongSell}

// Record is one warehouse row keyed by column name.
type Record map[string]any

// Text returns the string form of a column value, "" when absent.
func (r Record) Text(col string) string {
	return ValueText(r[col])
}

// Number returns a column value as float64 when it is numeric.
func (r Record) Number(col string) (float64, bool) {
	return ValueFloat(r[col])
}

// ValueText renders a warehouse value as a string. Dates render as YYYY-MM-DD.
func ValueText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a shallow copy so derived views never alias source rows.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ValueFloat converts numeric values, including numeric strings, to float64.
func ValueFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// IsInteger reports whether v holds an integral Go type.
func IsInteger(v any) bool {
	switch v.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return true
	}
	return false
}

// Table is a tabular query result.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col is part of the result schema.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Dataset is a cached warehouse query result. It is never mutated after
// construction; refresh replaces the whole value.
type Dataset struct {
	Query     QueryID       `json:"query"`
	Table     *Table        `json:"table"`
	FetchedAt time.Time     `json:"fetched_at"`
	TTL       time.Duration `json:"ttl"`
}

// ExpiresAt is the instant after which the dataset is stale.
func (d *Dataset) ExpiresAt() time.Time {
	return d.FetchedAt.Add(d.TTL)
}

// DatasetStatus summarises one cache entry.
type DatasetStatus struct {
	Query      QueryID   `json:"query"`
	Cached     bool      `json:"cached"`
	Rows       int       `json:"rows"`
	Columns    []string  `json:"columns"`
	FetchedAt  time.Time `json:"fetched_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	AgeSeconds float64   `json:"age_seconds"`
	Fresh      bool      `json:"fresh"`
}

// QueryDef binds a query identity to the literal text a backend executes.
type QueryDef struct {
	ID       QueryID  `json:"id"`
	Table    string   `json:"table"`
	SQL      string   `json:"sql"`
	Required []string `json:"required"`
}
