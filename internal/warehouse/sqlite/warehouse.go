// Package sqlite implements the warehouse client over an SQLite export.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/models"

	_ "modernc.org/sqlite"
)

// Dialect is the query language this backend executes.
const Dialect = "sql"

// Warehouse runs literal queries against an SQLite database file.
type Warehouse struct {
	db     *sql.DB
	logger *common.Logger
	path   string
}

// New opens the database at config.Path and verifies the connection.
func New(ctx context.Context, logger *common.Logger, config common.SQLiteConfig) (*Warehouse, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("sqlite warehouse path is required")
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite warehouse: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite warehouse: %w", err)
	}

	logger.Info().Str("path", config.Path).Msg("SQLite warehouse opened")

	return &Warehouse{db: db, logger: logger, path: config.Path}, nil
}

// Dialect returns the query language.
func (w *Warehouse) Dialect() string {
	return Dialect
}

// Query executes q.SQL and scans every row into a generic record.
func (w *Warehouse) Query(ctx context.Context, q models.QueryDef) (*models.Table, error) {
	start := time.Now()

	rows, err := w.db.QueryContext(ctx, q.SQL)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.ID, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query %s columns: %w", q.ID, err)
	}

	table := &models.Table{Columns: cols, Rows: []models.Record{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("query %s scan: %w", q.ID, err)
		}

		rec := make(models.Record, len(cols))
		for i, col := range cols {
			rec[col] = normalizeValue(values[i])
		}
		table.Rows = append(table.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s rows: %w", q.ID, err)
	}

	w.logger.Debug().
		Str("query", string(q.ID)).
		Int("rows", len(table.Rows)).
		Dur("elapsed", time.Since(start)).
		Msg("SQLite query complete")

	return table, nil
}

// Close releases the database handle.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
