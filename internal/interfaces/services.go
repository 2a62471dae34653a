// Package interfaces defines service contracts for tickerboard
package interfaces

import (
	"context"

	"github.com/bobmcallan/tickerboard/internal/models"
)

// DatasetCache serves the six warehouse datasets with TTL expiry and
// at most one in-flight warehouse call per query.
type DatasetCache interface {
	// Get returns the cached dataset, fetching it when absent or stale
	Get(ctx context.Context, id models.QueryID) (*models.Dataset, error)

	// Warm fetches every dataset that is absent or stale
	Warm(ctx context.Context) error

	// Snapshot describes the current cache entries
	Snapshot() []models.DatasetStatus
}

// ViewResolver derives per-symbol views from a dataset without mutating it.
type ViewResolver interface {
	Resolve(ds *models.Dataset, symbol string, kind models.ViewKind) (*models.TickerView, error)
}

// QuoteService validates and derives display fields from provider quotes.
type QuoteService interface {
	Fetch(ctx context.Context, symbol string) (*models.QuoteSnapshot, error)
}

// DashboardService composes the three dashboard tabs and their charts.
type DashboardService interface {
	General(ctx context.Context, symbol string) (*models.GeneralTab, error)
	Insiders(ctx context.Context, symbol string, metric models.InsiderMetric) (*models.InsidersTab, error)
	Analysts(ctx context.Context, symbol string) (*models.AnalystsTab, error)
	View(ctx context.Context, symbol string, kind models.ViewKind) (*models.TickerView, error)
	Chart(ctx context.Context, symbol string, chart string, metric models.InsiderMetric) ([]byte, error)
}
