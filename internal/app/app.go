// Package app wires configuration, the warehouse, caches and services.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/tickerboard/internal/clients/eodhd"
	"github.com/bobmcallan/tickerboard/internal/clients/yahoo"
	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/interfaces"
	"github.com/bobmcallan/tickerboard/internal/services/dashboard"
	"github.com/bobmcallan/tickerboard/internal/services/dataset"
	"github.com/bobmcallan/tickerboard/internal/services/quote"
	"github.com/bobmcallan/tickerboard/internal/services/view"
	"github.com/bobmcallan/tickerboard/internal/warehouse"
)

// App holds all initialized services and clients.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Warehouse        interfaces.Warehouse
	QuoteProvider    interfaces.QuoteProvider
	DatasetCache     interfaces.DatasetCache
	ViewResolver     interfaces.ViewResolver
	QuoteService     interfaces.QuoteService
	DashboardService interfaces.DashboardService
	StartupTime      time.Time

	warmCacheCancel context.CancelFunc
	warmDone        chan struct{}
	scheduler       *cron.Cron
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: explicit path, TICKERBOARD_CONFIG,
// the binary directory, then config/tickerboard.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("TICKERBOARD_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "tickerboard.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/tickerboard.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes every component.
// configPath may be empty, in which case ResolveConfigPath applies.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()
	binDir := getBinaryDir()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths to the binary directory
	if p := config.Warehouse.SQLite.Path; p != "" && !filepath.IsAbs(p) {
		config.Warehouse.SQLite.Path = filepath.Join(binDir, p)
	}
	if p := config.Logging.FilePath; p != "" && !filepath.IsAbs(p) {
		config.Logging.FilePath = filepath.Join(binDir, p)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return NewAppWithConfig(config, logger)
}

// NewAppWithConfig initializes components from an already loaded config.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	ctx := context.Background()

	wh, err := warehouse.NewWarehouse(ctx, logger, &config.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize warehouse: %w", err)
	}

	queries, err := warehouse.Queries(wh.Dialect(), config.Warehouse.TablePrefix)
	if err != nil {
		wh.Close()
		return nil, fmt.Errorf("failed to bind warehouse queries: %w", err)
	}

	provider, err := newQuoteProvider(config, logger)
	if err != nil {
		wh.Close()
		return nil, err
	}

	cache := dataset.NewCache(wh, queries, config.Cache.GetTTL(), config.Warehouse.GetTimeout(), logger)
	resolver := view.NewResolver()
	quotes := quote.NewService(provider, config.Quotes.GetTimeout(), logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Warehouse:        wh,
		QuoteProvider:    provider,
		DatasetCache:     cache,
		ViewResolver:     resolver,
		QuoteService:     quotes,
		DashboardService: dashboard.NewService(cache, resolver, quotes, logger),
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("warehouse", config.Warehouse.Driver).
		Str("quotes", provider.Name()).
		Dur("ttl", config.Cache.GetTTL()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

func newQuoteProvider(config *common.Config, logger *common.Logger) (interfaces.QuoteProvider, error) {
	timeout := config.Quotes.GetTimeout()

	switch config.Quotes.Provider {
	case yahoo.ProviderName, "":
		c := config.Quotes.Yahoo
		opts := []yahoo.ClientOption{
			yahoo.WithLogger(logger),
			yahoo.WithTimeout(timeout),
			yahoo.WithUserAgent(c.UserAgent),
			yahoo.WithRateLimit(c.RateLimit),
		}
		if c.BaseURL != "" {
			opts = append(opts, yahoo.WithBaseURL(c.BaseURL))
		}
		return yahoo.NewClient(opts...), nil

	case eodhd.ProviderName:
		c := config.Quotes.EODHD
		if c.APIKey == "" {
			return nil, fmt.Errorf("EODHD quote provider selected but no API key configured (set EODHD_API_KEY)")
		}
		opts := []eodhd.ClientOption{
			eodhd.WithLogger(logger),
			eodhd.WithTimeout(timeout),
			eodhd.WithRateLimit(c.RateLimit),
		}
		if c.BaseURL != "" {
			opts = append(opts, eodhd.WithBaseURL(c.BaseURL))
		}
		return eodhd.NewClient(c.APIKey, opts...), nil
	}

	return nil, fmt.Errorf("unknown quote provider: %s (supported: yahoo, eodhd)", config.Quotes.Provider)
}

// warmDrainTimeout bounds how long Close waits for an in-flight warm.
const warmDrainTimeout = 30 * time.Second

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, cancel warm cache and wait for it to
// return, close warehouse. Dataset fetches outlive ctx cancellation so
// the warehouse must stay open until the warm goroutine exits.
func (a *App) Close() {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
		a.scheduler = nil
	}
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
	if a.warmDone != nil {
		select {
		case <-a.warmDone:
		case <-time.After(warmDrainTimeout):
			a.Logger.Warn().Dur("timeout", warmDrainTimeout).Msg("Warm cache: still running at shutdown")
		}
		a.warmDone = nil
	}
	if a.Warehouse != nil {
		if err := a.Warehouse.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Warehouse close failed")
		}
		a.Warehouse = nil
	}
}

// StartWarmCache launches the background dataset warm.
func (a *App) StartWarmCache() {
	if !a.Config.Cache.WarmOnStart {
		a.Logger.Info().Msg("Warm cache: disabled by cache.warm_on_start")
		return
	}
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	done := make(chan struct{})
	a.warmCacheCancel = warmCancel
	a.warmDone = done
	go func() {
		defer close(done)
		defer warmCancel()
		warmCache(warmCtx, a.DatasetCache, a.Logger)
	}()
}

// StartWarmScheduler re-warms datasets on cache.warm_schedule.
func (a *App) StartWarmScheduler() error {
	spec := a.Config.Cache.WarmSchedule
	if spec == "" {
		return nil
	}
	c, err := newWarmScheduler(spec, a.DatasetCache, a.Logger)
	if err != nil {
		return err
	}
	a.scheduler = c
	c.Start()
	a.Logger.Info().Str("schedule", spec).Msg("Warm scheduler: started")
	return nil
}
