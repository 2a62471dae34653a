package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Warehouse.Driver)
	assert.Equal(t, "yahoo", cfg.Quotes.Provider)
	assert.Equal(t, 30000*time.Second, cfg.Cache.GetTTL())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("TICKERBOARD_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestConfig_WarehouseCredentialOverrides(t *testing.T) {
	t.Setenv("TICKERBOARD_WAREHOUSE_DRIVER", "SurrealDB")
	t.Setenv("TICKERBOARD_WAREHOUSE_USERNAME", "reader")
	t.Setenv("TICKERBOARD_WAREHOUSE_PASSWORD", "s3cret")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "surrealdb", cfg.Warehouse.Driver)
	assert.Equal(t, "reader", cfg.Warehouse.SurrealDB.Username)
	assert.Equal(t, "s3cret", cfg.Warehouse.SurrealDB.Password)
}

func TestConfig_EODHDKeyEnvOverride(t *testing.T) {
	t.Setenv("EODHD_API_KEY", "from-env")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "from-env", cfg.Quotes.EODHD.APIKey)
}

func TestConfig_DurationFallbacks(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Cache.TTL = "not-a-duration"
	cfg.Warehouse.Timeout = ""
	cfg.Quotes.Timeout = "-1s"

	assert.Equal(t, DefaultDatasetTTL, cfg.Cache.GetTTL())
	assert.Equal(t, 60*time.Second, cfg.Warehouse.GetTimeout())
	assert.Equal(t, 15*time.Second, cfg.Quotes.GetTimeout())
}

func TestLoadConfig_FileLayering(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
environment = "production"

[warehouse]
driver = "surrealdb"
table_prefix = "dbt_"

[cache]
ttl = "10m"
`), 0644))
	require.NoError(t, os.WriteFile(local, []byte(`
[cache]
ttl = "5m"
`), 0644))

	cfg, err := LoadConfig(base, local, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "surrealdb", cfg.Warehouse.Driver)
	assert.Equal(t, "dbt_", cfg.Warehouse.TablePrefix)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GetTTL())
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[warehouse]
driver = "bigtable"
`), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("TICKERBOARD_QUOTE_PROVIDER", "bloomberg")

	_, err := LoadConfig()
	assert.Error(t, err)
}
