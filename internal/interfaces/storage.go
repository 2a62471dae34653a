// Package interfaces defines service contracts for tickerboard
package interfaces

import (
	"context"

	"github.com/bobmcallan/tickerboard/internal/models"
)

// Warehouse executes literal, parameterless queries against the data warehouse.
type Warehouse interface {
	// Query runs q.SQL verbatim and returns the tabular result
	Query(ctx context.Context, q models.QueryDef) (*models.Table, error)

	// Dialect names the query language the backend understands
	Dialect() string

	// Close releases the underlying connection
	Close() error
}
