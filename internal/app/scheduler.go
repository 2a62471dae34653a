package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/interfaces"
)

// warmJobTimeout bounds one scheduled warm.
const warmJobTimeout = 10 * time.Minute

// newWarmScheduler builds a cron scheduler that re-warms the dataset cache.
// The warm goes through the normal Get path so only absent or expired
// entries reach the warehouse.
func newWarmScheduler(spec string, cache interfaces.DatasetCache, logger *common.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), warmJobTimeout)
		defer cancel()
		refreshDatasets(ctx, cache, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cache.warm_schedule %q: %w", spec, err)
	}
	return c, nil
}

func refreshDatasets(ctx context.Context, cache interfaces.DatasetCache, logger *common.Logger) {
	start := time.Now()

	if err := cache.Warm(ctx); err != nil {
		logger.Warn().Err(err).Msg("Scheduled warm: dataset fetch failed")
		return
	}

	stale := 0
	for _, st := range cache.Snapshot() {
		if !st.Fresh {
			stale++
		}
	}

	logger.Info().
		Int("stale", stale).
		Dur("elapsed", time.Since(start)).
		Msg("Scheduled warm: complete")
}
