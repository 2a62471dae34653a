package app

import (
	"context"
	"os"
	"time"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/interfaces"
)

// warmCache materializes all six datasets on startup so the first
// dashboard request does not wait on the warehouse.
func warmCache(ctx context.Context, cache interfaces.DatasetCache, logger *common.Logger) {
	if os.Getenv("TICKERBOARD_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via TICKERBOARD_WARM_CACHE=off")
		return
	}

	start := time.Now()
	logger.Info().Msg("Warm cache: starting")

	if err := cache.Warm(ctx); err != nil {
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Warm cache: dataset fetch failed")
		return
	}

	cached := 0
	for _, st := range cache.Snapshot() {
		if st.Cached {
			cached++
		}
	}

	logger.Info().
		Int("datasets", cached).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
