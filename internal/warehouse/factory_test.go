package warehouse

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWarehouse_SQLite(t *testing.T) {
	cfg := &common.WarehouseConfig{
		Driver: DriverSQLite,
		SQLite: common.SQLiteConfig{Path: filepath.Join(t.TempDir(), "w.db")},
	}
	w, err := NewWarehouse(context.Background(), common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, DialectSQL, w.Dialect())
}

func TestNewWarehouse_UnknownDriver(t *testing.T) {
	_, err := NewWarehouse(context.Background(), common.NewSilentLogger(), &common.WarehouseConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown warehouse driver")
}
