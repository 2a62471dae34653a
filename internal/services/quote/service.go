// Package quote provides live quote lookups with derived display fields
package quote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/interfaces"
	"github.com/bobmcallan/tickerboard/internal/models"
)

// ErrMissingField reports a required quote field the provider did not return.
var ErrMissingField = errors.New("missing required quote field")

// Service implements interfaces.QuoteService. Quotes are never cached.
type Service struct {
	provider interfaces.QuoteProvider
	timeout  time.Duration
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
}

// NewService creates a quote service bounded by timeout per lookup.
func NewService(provider interfaces.QuoteProvider, timeout time.Duration, logger *common.Logger) *Service {
	return &Service{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Fetch looks up symbol and validates the required fields. Only a missing
// dividend rate is substituted, with "-".
func (s *Service) Fetch(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	op := "quote " + sym

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	fields, err := s.provider.FetchQuote(ctx, sym)
	if err != nil {
		if ctx.Err() != nil {
			err = common.TimeoutError(op, ctx.Err())
		} else {
			err = common.QuoteProviderError(op, err)
		}
		s.logger.Warn().
			Str("symbol", sym).
			Str("provider", s.provider.Name()).
			Err(err).
			Msg("Quote lookup failed")
		return nil, err
	}
	if fields == nil {
		return nil, common.QuoteProviderError(op, fmt.Errorf("%w: %s", common.ErrUnknownSymbol, sym))
	}

	if missing := missingRequired(fields); len(missing) > 0 {
		return nil, common.QuoteProviderError(op, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", ")))
	}

	snap := &models.QuoteSnapshot{
		Symbol:                 sym,
		ShortName:              *fields.ShortName,
		Sector:                 *fields.Sector,
		PreviousClose:          *fields.PreviousClose,
		TrailingEps:            *fields.TrailingEps,
		HeldPercentInsiders:    *fields.HeldPercentInsiders,
		HeldPercentInsidersPct: Round2(*fields.HeldPercentInsiders * 100),
		DividendRate:           models.DividendPlaceholder,
		ShortRatio:             *fields.ShortRatio,
		MarketCap:              *fields.MarketCap,
		MarketCapBillions:      Round2(*fields.MarketCap / 1e9),
		SharesOutstanding:      fields.SharesOutstanding,
		Provider:               s.provider.Name(),
		FetchedAt:              s.now(),
	}
	if fields.DividendRate != nil {
		snap.DividendRate = strconv.FormatFloat(*fields.DividendRate, 'f', -1, 64)
	}

	return snap, nil
}

func missingRequired(f *models.QuoteFields) []string {
	var missing []string
	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	check("previousClose", f.PreviousClose != nil)
	check("sector", f.Sector != nil)
	check("shortName", f.ShortName != nil)
	check("trailingEps", f.TrailingEps != nil)
	check("heldPercentInsiders", f.HeldPercentInsiders != nil)
	check("shortRatio", f.ShortRatio != nil)
	check("marketCap", f.MarketCap != nil)
	return missing
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
