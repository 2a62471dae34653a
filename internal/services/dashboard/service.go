// Package dashboard composes the General, Insiders and Analysts tabs
package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/interfaces"
	"github.com/bobmcallan/tickerboard/internal/models"
	"github.com/bobmcallan/tickerboard/internal/services/quote"
)

// PieTitle heads the insider buy/sell pie.
const PieTitle = "Buy vs. Sell Percentages"

// Service implements interfaces.DashboardService. Datasets come from the
// shared cache; quotes are fetched fresh on every call.
type Service struct {
	cache    interfaces.DatasetCache
	resolver interfaces.ViewResolver
	quotes   interfaces.QuoteService
	logger   *common.Logger
}

// NewService creates a dashboard service.
func NewService(cache interfaces.DatasetCache, resolver interfaces.ViewResolver, quotes interfaces.QuoteService, logger *common.Logger) *Service {
	return &Service{
		cache:    cache,
		resolver: resolver,
		quotes:   quotes,
		logger:   logger,
	}
}

// ParseMetric validates the insider chart metric; empty means count.
func ParseMetric(raw string) (models.InsiderMetric, error) {
	switch m := models.InsiderMetric(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return models.InsiderMetricCount, nil
	case models.InsiderMetricCount, models.InsiderMetricShares:
		return m, nil
	}
	return "", common.InvalidInput("parse metric", "unknown insider metric %q (supported: count, shares)", raw)
}

// View resolves one view kind for symbol from its cached dataset.
func (s *Service) View(ctx context.Context, symbol string, kind models.ViewKind) (*models.TickerView, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	source, ok := kind.Source()
	if !ok {
		return nil, common.InvalidInput("view", "unknown view kind %q", kind)
	}
	ds, err := s.cache.Get(ctx, source)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ds, sym, kind)
}

// views resolves several kinds concurrently, in the order given.
func (s *Service) views(ctx context.Context, sym string, kinds ...models.ViewKind) ([]*models.TickerView, error) {
	out := make([]*models.TickerView, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			v, err := s.View(gctx, sym, kind)
			out[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// General returns the quote header and price history.
func (s *Service) General(ctx context.Context, symbol string) (*models.GeneralTab, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var snap *models.QuoteSnapshot
	var prices *models.TickerView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = s.quotes.Fetch(gctx, sym)
		return err
	})
	g.Go(func() error {
		var err error
		prices, err = s.View(gctx, sym, models.ViewPricesBySymbol)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.GeneralTab{
		Symbol:         sym,
		Quote:          snap,
		MarketCapLabel: strconv.FormatFloat(snap.MarketCapBillions, 'f', -1, 64) + "B",
		Prices:         prices,
	}, nil
}

// Insiders returns insider activity, roster, buy/sell split and holdings.
// A quote without sharesOutstanding fails the tab.
func (s *Service) Insiders(ctx context.Context, symbol string, metric models.InsiderMetric) (*models.InsidersTab, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	metric, err = ParseMetric(string(metric))
	if err != nil {
		return nil, err
	}

	views, err := s.views(ctx, sym,
		models.ViewInsiderTxBySymbol,
		models.ViewInsiderRosterBySymbol,
		models.ViewInsiderTxPieBySymbol,
	)
	if err != nil {
		return nil, err
	}

	snap, err := s.quotes.Fetch(ctx, sym)
	if err != nil {
		return nil, err
	}
	if snap.SharesOutstanding == nil {
		return nil, common.QuoteProviderError("insiders "+sym, fmt.Errorf("%w: sharesOutstanding", quote.ErrMissingField))
	}
	shares := *snap.SharesOutstanding

	labels := make([]string, len(views[1].Columns))
	for i, col := range views[1].Columns {
		labels[i] = models.RosterLabels[col]
	}

	return &models.InsidersTab{
		Symbol:       sym,
		Metric:       metric,
		MetricColumn: metric.Column(),
		Transactions: views[0],
		Roster:       views[1],
		RosterLabels: labels,
		Pie: &models.PieView{
			Title:  PieTitle,
			Colors: models.TransactionColors,
			View:   views[2],
		},
		HeldPercentInsidersPct: snap.HeldPercentInsidersPct,
		SharesOutstanding:      shares,
		InsiderValue:           shares * snap.HeldPercentInsidersPct / 100,
	}, nil
}

// RecommendationsTitle heads the analyst recommendation chart.
func RecommendationsTitle(sym string) string {
	return fmt.Sprintf("Recommendations for %s stock over the past four months", sym)
}

// Analysts returns rating changes and the recommendation history.
func (s *Service) Analysts(ctx context.Context, symbol string) (*models.AnalystsTab, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	views, err := s.views(ctx, sym, models.ViewAnalystChangesBySymbol, models.ViewAnalystRecBySymbol)
	if err != nil {
		return nil, err
	}

	return &models.AnalystsTab{
		Symbol:               sym,
		Changes:              views[0],
		Recommendations:      views[1],
		RecommendationsTitle: RecommendationsTitle(sym),
	}, nil
}

// Chart renders one named chart as PNG.
func (s *Service) Chart(ctx context.Context, symbol string, name string, metric models.InsiderMetric) ([]byte, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	switch name {
	case ChartPrice:
		v, err := s.View(ctx, sym, models.ViewPricesBySymbol)
		if err != nil {
			return nil, err
		}
		return RenderPriceChart(v)

	case ChartInsiders:
		metric, err := ParseMetric(string(metric))
		if err != nil {
			return nil, err
		}
		v, err := s.View(ctx, sym, models.ViewInsiderTxBySymbol)
		if err != nil {
			return nil, err
		}
		return RenderInsiderChart(v, metric)

	case ChartInsiderPie:
		v, err := s.View(ctx, sym, models.ViewInsiderTxPieBySymbol)
		if err != nil {
			return nil, err
		}
		return RenderInsiderPie(&models.PieView{Title: PieTitle, Colors: models.TransactionColors, View: v})

	case ChartRecommendations:
		v, err := s.View(ctx, sym, models.ViewAnalystRecBySymbol)
		if err != nil {
			return nil, err
		}
		return RenderRecommendationChart(v, RecommendationsTitle(sym))
	}

	return nil, common.InvalidInput("chart", "unknown chart %q (supported: %s)", name, strings.Join(ChartNames, ", "))
}
