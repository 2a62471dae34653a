// Package surrealdb implements the warehouse client over SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Dialect is the query language this backend executes.
const Dialect = "surrealql"

// Warehouse runs literal SurrealQL queries.
type Warehouse struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// New connects, signs in and selects the namespace/database.
func New(ctx context.Context, logger *common.Logger, config common.SurrealDBConfig, timeout time.Duration) (*Warehouse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		db.Close(context.Background())
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		db.Close(context.Background())
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	logger.Info().
		Str("address", config.Address).
		Str("namespace", config.Namespace).
		Str("database", config.Database).
		Msg("SurrealDB warehouse connected")

	return NewWithDB(db, logger), nil
}

// NewWithDB wraps an already connected client.
func NewWithDB(db *surrealdb.DB, logger *common.Logger) *Warehouse {
	return &Warehouse{db: db, logger: logger}
}

// Dialect returns the query language.
func (w *Warehouse) Dialect() string {
	return Dialect
}

// Query executes q.SQL. Record ids are dropped; columns are the sorted
// union of the returned keys.
func (w *Warehouse) Query(ctx context.Context, q models.QueryDef) (*models.Table, error) {
	start := time.Now()

	results, err := surrealdb.Query[[]map[string]any](ctx, w.db, q.SQL, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.ID, err)
	}

	table := &models.Table{Columns: []string{}, Rows: []models.Record{}}
	if results == nil || len(*results) == 0 {
		return table, nil
	}

	seen := make(map[string]bool)
	for _, row := range (*results)[0].Result {
		rec := make(models.Record, len(row))
		for k, v := range row {
			if k == "id" {
				continue
			}
			rec[k] = normalizeValue(v)
			if !seen[k] {
				seen[k] = true
				table.Columns = append(table.Columns, k)
			}
		}
		table.Rows = append(table.Rows, rec)
	}
	sort.Strings(table.Columns)

	w.logger.Debug().
		Str("query", string(q.ID)).
		Int("rows", len(table.Rows)).
		Dur("elapsed", time.Since(start)).
		Msg("SurrealDB query complete")

	return table, nil
}

// normalizeValue unwraps the CBOR wrapper types so rows hold plain Go
// values, matching what the sqlite backend returns.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case surrealmodels.CustomDateTime:
		return t.Time
	case *surrealmodels.CustomDateTime:
		if t == nil {
			return nil
		}
		return t.Time
	case surrealmodels.CustomNil, *surrealmodels.CustomNil:
		return nil
	case surrealmodels.CustomDuration:
		return t.Duration
	case *surrealmodels.CustomDuration:
		if t == nil {
			return nil
		}
		return t.Duration
	case surrealmodels.DecimalString:
		return string(t)
	}
	return v
}

// Close closes the connection.
func (w *Warehouse) Close() error {
	return w.db.Close(context.Background())
}
