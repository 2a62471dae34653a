package warehouse

import (
	"context"
	"fmt"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/interfaces"
	"github.com/bobmcallan/tickerboard/internal/warehouse/sqlite"
	"github.com/bobmcallan/tickerboard/internal/warehouse/surrealdb"
)

// Driver constants.
const (
	DriverSQLite    = "sqlite"
	DriverSurrealDB = "surrealdb"
)

// NewWarehouse opens the configured warehouse backend.
// Supported drivers: "sqlite" (default), "surrealdb".
func NewWarehouse(ctx context.Context, logger *common.Logger, config *common.WarehouseConfig) (interfaces.Warehouse, error) {
	driver := config.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverSQLite:
		return sqlite.New(ctx, logger, config.SQLite)

	case DriverSurrealDB:
		return surrealdb.New(ctx, logger, config.SurrealDB, config.GetTimeout())

	default:
		return nil, fmt.Errorf("unknown warehouse driver: %s (supported: sqlite, surrealdb)", driver)
	}
}
