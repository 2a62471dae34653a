package app

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/models"
)

// writeTestConfig writes a config pointing at a seeded temp warehouse.
func writeTestConfig(t *testing.T, extra string) string {
	return writeTestConfigWithPrefix(t, "", extra)
}

func writeTestConfigWithPrefix(t *testing.T, prefix, extra string) string {
	t.Helper()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "warehouse.db")
	seedWarehouse(t, dbPath)

	config := `
[warehouse]
driver = "sqlite"
table_prefix = "` + prefix + `"

[warehouse.sqlite]
path = "` + filepath.ToSlash(dbPath) + `"

[logging]
level = "error"
outputs = ["console"]
file_path = "` + filepath.ToSlash(filepath.Join(dir, "logs", "tickerboard.log")) + `"
` + extra
	configPath := filepath.Join(dir, "tickerboard.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func seedWarehouse(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE core_prices (Ticker TEXT, Date TEXT, Price REAL)`,
		`INSERT INTO core_prices VALUES ('ABC', '2024-01-01', 10.0)`,
		`CREATE TABLE optimized_insiders_trans (symbol TEXT, formatted_date TEXT, transaction_type TEXT, cnt INTEGER, quantity INTEGER)`,
		`CREATE TABLE core_ins_pur (symbol TEXT, insider_purchases TEXT, shares INTEGER)`,
		`CREATE TABLE core_ins_roster (symbol TEXT, name TEXT, position TEXT, shares_owned_directly INTEGER)`,
		`CREATE TABLE core_analyst_change (symbol TEXT, date TEXT, firm TEXT, from_grade TEXT, to_grade TEXT, action TEXT)`,
		`CREATE TABLE core_analyst_rec (symbol TEXT, period TEXT, strong_buy INTEGER, buy INTEGER, hold INTEGER, sell INTEGER, strong_sell INTEGER)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
}

func TestNewApp_InitializesAllServices(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	if a.Config == nil || a.Logger == nil {
		t.Fatal("config or logger is nil")
	}
	if a.Warehouse == nil {
		t.Error("Warehouse is nil")
	}
	if a.QuoteProvider == nil || a.QuoteProvider.Name() != "yahoo" {
		t.Errorf("expected yahoo quote provider, got %v", a.QuoteProvider)
	}
	if a.DatasetCache == nil || a.ViewResolver == nil || a.QuoteService == nil || a.DashboardService == nil {
		t.Error("a service is nil")
	}
	if a.StartupTime.IsZero() {
		t.Error("StartupTime is zero")
	}
}

func TestNewApp_WarmFetchesAllDatasets(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	if err := a.DatasetCache.Warm(context.Background()); err != nil {
		t.Fatalf("Warm failed: %v", err)
	}
	for _, st := range a.DatasetCache.Snapshot() {
		if !st.Cached || !st.Fresh {
			t.Errorf("dataset %s not cached after warm", st.Query)
		}
	}

	v, err := a.DashboardService.View(context.Background(), "ABC", models.ViewPricesBySymbol)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(v.Rows) != 1 {
		t.Errorf("expected 1 price row, got %d", len(v.Rows))
	}
}

func TestNewApp_EODHDRequiresKey(t *testing.T) {
	t.Setenv("EODHD_API_KEY", "")
	t.Setenv("TICKERBOARD_EODHD_API_KEY", "")
	_, err := NewApp(writeTestConfig(t, "\n[quotes]\nprovider = \"eodhd\"\n"))
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("expected missing API key error, got %v", err)
	}
}

func TestNewApp_EODHDProvider(t *testing.T) {
	t.Setenv("EODHD_API_KEY", "k")
	a, err := NewApp(writeTestConfig(t, "\n[quotes]\nprovider = \"eodhd\"\n"))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()
	if a.QuoteProvider.Name() != "eodhd" {
		t.Errorf("expected eodhd provider, got %s", a.QuoteProvider.Name())
	}
}

func TestNewApp_BadTablePrefix(t *testing.T) {
	_, err := NewApp(writeTestConfigWithPrefix(t, "x;--", ""))
	if err == nil {
		t.Fatal("expected config error for table prefix")
	}
}

func TestStartWarmScheduler_InvalidSchedule(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	a.Config.Cache.WarmSchedule = "every tuesday"
	if err := a.StartWarmScheduler(); err == nil {
		t.Fatal("expected invalid schedule error")
	}

	a.Config.Cache.WarmSchedule = "*/5 * * * *"
	if err := a.StartWarmScheduler(); err != nil {
		t.Fatalf("StartWarmScheduler failed: %v", err)
	}
}

// --- warm helpers ---

type countingCache struct {
	warms atomic.Int64
	err   error
}

func (c *countingCache) Get(context.Context, models.QueryID) (*models.Dataset, error) {
	return nil, nil
}

func (c *countingCache) Warm(context.Context) error {
	c.warms.Add(1)
	return c.err
}

func (c *countingCache) Snapshot() []models.DatasetStatus {
	return []models.DatasetStatus{{Query: models.QueryPrices, Cached: true, Fresh: true}}
}

func TestWarmCache_DisabledByEnv(t *testing.T) {
	t.Setenv("TICKERBOARD_WARM_CACHE", "off")
	c := &countingCache{}
	warmCache(context.Background(), c, common.NewSilentLogger())
	if c.warms.Load() != 0 {
		t.Error("warm should be skipped")
	}
}

func TestWarmCache_ErrorIsLoggedNotFatal(t *testing.T) {
	t.Setenv("TICKERBOARD_WARM_CACHE", "")
	c := &countingCache{err: errors.New("warehouse down")}
	warmCache(context.Background(), c, common.NewSilentLogger())
	if c.warms.Load() != 1 {
		t.Errorf("expected one warm, got %d", c.warms.Load())
	}
}

func TestRefreshDatasets(t *testing.T) {
	c := &countingCache{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	refreshDatasets(ctx, c, common.NewSilentLogger())
	if c.warms.Load() != 1 {
		t.Errorf("expected one warm, got %d", c.warms.Load())
	}
}

type closeTrackingWarehouse struct {
	closed atomic.Bool
}

func (w *closeTrackingWarehouse) Query(context.Context, models.QueryDef) (*models.Table, error) {
	return &models.Table{}, nil
}

func (w *closeTrackingWarehouse) Dialect() string { return "sqlite" }

func (w *closeTrackingWarehouse) Close() error {
	w.closed.Store(true)
	return nil
}

// slowWarmCache keeps fetching for a while after its ctx is cancelled.
type slowWarmCache struct {
	countingCache
	wh             *closeTrackingWarehouse
	started        chan struct{}
	finished       atomic.Bool
	sawClosedStore atomic.Bool
}

func (c *slowWarmCache) Warm(ctx context.Context) error {
	close(c.started)
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	if c.wh.closed.Load() {
		c.sawClosedStore.Store(true)
	}
	c.finished.Store(true)
	return nil
}

func TestClose_WaitsForWarmBeforeClosingWarehouse(t *testing.T) {
	t.Setenv("TICKERBOARD_WARM_CACHE", "")
	wh := &closeTrackingWarehouse{}
	cache := &slowWarmCache{wh: wh, started: make(chan struct{})}
	cfg := common.NewDefaultConfig()
	cfg.Cache.WarmOnStart = true

	a := &App{Config: cfg, Logger: common.NewSilentLogger(), Warehouse: wh, DatasetCache: cache}
	a.StartWarmCache()
	<-cache.started
	a.Close()

	if !cache.finished.Load() {
		t.Error("Close returned before the warm finished")
	}
	if cache.sawClosedStore.Load() {
		t.Error("warehouse closed while the warm was still fetching")
	}
	if !wh.closed.Load() {
		t.Error("warehouse not closed")
	}
}
