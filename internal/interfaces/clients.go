// Package interfaces defines service contracts for tickerboard
package interfaces

import (
	"context"

	"github.com/bobmcallan/tickerboard/internal/models"
)

// QuoteProvider fetches live quote metadata for a ticker.
// Fields the provider does not return are left nil.
type QuoteProvider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*models.QuoteFields, error)
}
