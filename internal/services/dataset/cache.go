// Package dataset provides the process-wide cache of warehouse datasets
package dataset

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/interfaces"
	"github.com/bobmcallan/tickerboard/internal/models"
)

// Cache implements interfaces.DatasetCache. Each query identity has at
// most one entry and at most one warehouse call in flight.
type Cache struct {
	warehouse interfaces.Warehouse
	queries   map[models.QueryID]models.QueryDef
	ttl       time.Duration
	timeout   time.Duration
	logger    *common.Logger
	now       func() time.Time // injectable clock for testing

	mu      sync.RWMutex
	entries map[models.QueryID]*models.Dataset
	group   singleflight.Group
}

// NewCache creates a cache over the bound queries. ttl applies uniformly;
// timeout bounds each warehouse call.
func NewCache(warehouse interfaces.Warehouse, queries map[models.QueryID]models.QueryDef, ttl, timeout time.Duration, logger *common.Logger) *Cache {
	if ttl <= 0 {
		ttl = common.DefaultDatasetTTL
	}
	return &Cache{
		warehouse: warehouse,
		queries:   queries,
		ttl:       ttl,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
		entries:   make(map[models.QueryID]*models.Dataset),
	}
}

// Get returns the dataset for id, querying the warehouse only when the
// entry is absent or older than the TTL. Concurrent callers for the same
// id share a single warehouse call. A caller whose ctx ends stops waiting
// while the fetch continues for the others.
func (c *Cache) Get(ctx context.Context, id models.QueryID) (*models.Dataset, error) {
	def, ok := c.queries[id]
	if !ok {
		return nil, common.InvalidInput("dataset get", "unknown query id %q", id)
	}

	if ds := c.fresh(id); ds != nil {
		return ds, nil
	}

	// The fetch must outlive any single waiter.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(string(id), func() (interface{}, error) {
		// Another flight may have refreshed the entry between our check and now
		if ds := c.fresh(id); ds != nil {
			return ds, nil
		}
		return c.fetch(fetchCtx, def)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug().Str("query", string(id)).Msg("Dataset fetch coalesced")
		}
		return res.Val.(*models.Dataset), nil
	case <-ctx.Done():
		return nil, common.TimeoutError("dataset "+string(id), ctx.Err())
	}
}

func (c *Cache) fresh(id models.QueryID) *models.Dataset {
	c.mu.RLock()
	ds := c.entries[id]
	c.mu.RUnlock()
	if ds != nil && common.IsFresh(ds.FetchedAt, c.now(), ds.TTL) {
		return ds
	}
	return nil
}

func (c *Cache) fetch(ctx context.Context, def models.QueryDef) (*models.Dataset, error) {
	op := "dataset " + string(def.ID)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Info().Str("query", string(def.ID)).Str("table", def.Table).Msg("Fetching dataset from warehouse")
	start := time.Now()

	table, err := c.warehouse.Query(ctx, def)
	if err != nil {
		if ctx.Err() != nil {
			err = common.TimeoutError(op, ctx.Err())
		} else {
			err = common.WarehouseError(op, err)
		}
		c.logger.Error().
			Str("query", string(def.ID)).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("Dataset fetch failed")
		return nil, err
	}
	if table == nil {
		table = &models.Table{Rows: []models.Record{}}
	}

	for _, col := range def.Required {
		if len(table.Rows) > 0 && !table.HasColumn(col) {
			c.logger.Warn().Str("query", string(def.ID)).Str("column", col).Msg("Dataset missing required column")
		}
	}

	ds := &models.Dataset{
		Query:     def.ID,
		Table:     table,
		FetchedAt: c.now(),
		TTL:       c.ttl,
	}

	c.mu.Lock()
	c.entries[def.ID] = ds
	c.mu.Unlock()

	c.logger.Info().
		Str("query", string(def.ID)).
		Int("rows", table.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Dataset cached")

	return ds, nil
}

// Warm materializes every dataset that is absent or stale. Datasets are
// independent so they are fetched concurrently; the first error is returned.
func (c *Cache) Warm(ctx context.Context) error {
	var g errgroup.Group
	for _, id := range models.AllQueries() {
		if _, ok := c.queries[id]; !ok {
			continue
		}
		g.Go(func() error {
			_, err := c.Get(ctx, id)
			return err
		})
	}
	return g.Wait()
}

// Snapshot reports every bound dataset in display order.
func (c *Cache) Snapshot() []models.DatasetStatus {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.DatasetStatus, 0, len(c.queries))
	for _, id := range models.AllQueries() {
		if _, ok := c.queries[id]; !ok {
			continue
		}
		st := models.DatasetStatus{Query: id}
		if ds := c.entries[id]; ds != nil {
			st.Cached = true
			st.Rows = ds.Table.Len()
			st.Columns = ds.Table.Columns
			st.FetchedAt = ds.FetchedAt
			st.ExpiresAt = ds.ExpiresAt()
			st.AgeSeconds = now.Sub(ds.FetchedAt).Seconds()
			st.Fresh = common.IsFresh(ds.FetchedAt, now, ds.TTL)
		}
		out = append(out, st)
	}
	return out
}
