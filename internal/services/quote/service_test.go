package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/tickerboard/internal/clients/yahoo"
	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/models"
)

// --- Mocks ---

type mockProvider struct {
	fields *models.QuoteFields
	err    error
	block  bool
	calls  int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) FetchQuote(ctx context.Context, symbol string) (*models.QuoteFields, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return nil, fmt.Errorf("request: %w", ctx.Err())
	}
	return m.fields, m.err
}

func ptr[T any](v T) *T { return &v }

func fullFields() *models.QuoteFields {
	return &models.QuoteFields{
		Symbol:              "AAPL",
		ShortName:           ptr("Apple Inc."),
		Sector:              ptr("Technology"),
		PreviousClose:       ptr(189.84),
		TrailingEps:         ptr(6.42),
		HeldPercentInsiders: ptr(0.00071),
		DividendRate:        ptr(0.96),
		ShortRatio:          ptr(1.5),
		MarketCap:           ptr(2951234567890.0),
		SharesOutstanding:   ptr(15550000000.0),
	}
}

func newTestService(p *mockProvider) *Service {
	svc := NewService(p, time.Second, common.NewSilentLogger())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

// --- Tests ---

func TestFetch_DerivedFields(t *testing.T) {
	svc := newTestService(&mockProvider{fields: fullFields()})

	snap, err := svc.Fetch(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snap.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", snap.Symbol)
	}
	if snap.MarketCapBillions != 2951.23 {
		t.Errorf("expected market cap 2951.23B, got %v", snap.MarketCapBillions)
	}
	if snap.HeldPercentInsidersPct != 0.07 {
		t.Errorf("expected insider pct 0.07, got %v", snap.HeldPercentInsidersPct)
	}
	if snap.DividendRate != "0.96" {
		t.Errorf("expected dividend 0.96, got %s", snap.DividendRate)
	}
	if snap.Provider != "mock" {
		t.Errorf("expected provider mock, got %s", snap.Provider)
	}
	if snap.SharesOutstanding == nil || *snap.SharesOutstanding != 15550000000 {
		t.Errorf("unexpected shares outstanding %v", snap.SharesOutstanding)
	}
}

func TestFetch_MissingDividendFallsBack(t *testing.T) {
	fields := fullFields()
	fields.DividendRate = nil
	svc := newTestService(&mockProvider{fields: fields})

	snap, err := svc.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snap.DividendRate != "-" {
		t.Errorf("expected dividend placeholder, got %s", snap.DividendRate)
	}
	if snap.ShortName != "Apple Inc." || snap.Sector != "Technology" || snap.PreviousClose != 189.84 {
		t.Errorf("expected real values for other fields, got %+v", snap)
	}
	if snap.TrailingEps != 6.42 || snap.ShortRatio != 1.5 {
		t.Errorf("expected real eps and short ratio, got %+v", snap)
	}
}

func TestFetch_UnknownSymbolIsProviderError(t *testing.T) {
	svc := newTestService(&mockProvider{err: fmt.Errorf("%w: ZZZZ", common.ErrUnknownSymbol)})

	snap, err := svc.Fetch(context.Background(), "ZZZZ")
	if snap != nil {
		t.Errorf("expected no snapshot, got %+v", snap)
	}
	if !errors.Is(err, common.ErrQuoteProvider) {
		t.Fatalf("expected QuoteProviderError, got %v", err)
	}
	if !errors.Is(err, common.ErrUnknownSymbol) {
		t.Errorf("expected unknown symbol cause, got %v", err)
	}
}

func TestFetch_NilFieldsIsUnknownSymbol(t *testing.T) {
	svc := newTestService(&mockProvider{})

	_, err := svc.Fetch(context.Background(), "ZZZZ")
	if !errors.Is(err, common.ErrQuoteProvider) || !errors.Is(err, common.ErrUnknownSymbol) {
		t.Fatalf("expected unknown symbol provider error, got %v", err)
	}
}

func TestFetch_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name  string
		clear func(*models.QuoteFields)
	}{
		{"previousClose", func(f *models.QuoteFields) { f.PreviousClose = nil }},
		{"sector", func(f *models.QuoteFields) { f.Sector = nil }},
		{"shortName", func(f *models.QuoteFields) { f.ShortName = nil }},
		{"trailingEps", func(f *models.QuoteFields) { f.TrailingEps = nil }},
		{"heldPercentInsiders", func(f *models.QuoteFields) { f.HeldPercentInsiders = nil }},
		{"shortRatio", func(f *models.QuoteFields) { f.ShortRatio = nil }},
		{"marketCap", func(f *models.QuoteFields) { f.MarketCap = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := fullFields()
			tt.clear(fields)
			_, err := newTestService(&mockProvider{fields: fields}).Fetch(context.Background(), "AAPL")
			if !errors.Is(err, common.ErrQuoteProvider) || !errors.Is(err, ErrMissingField) {
				t.Fatalf("expected missing field provider error, got %v", err)
			}
		})
	}
}

func TestFetch_SharesOutstandingOptional(t *testing.T) {
	fields := fullFields()
	fields.SharesOutstanding = nil

	snap, err := newTestService(&mockProvider{fields: fields}).Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snap.SharesOutstanding != nil {
		t.Errorf("expected nil shares outstanding")
	}
}

func TestFetch_Timeout(t *testing.T) {
	p := &mockProvider{block: true}
	svc := NewService(p, 20*time.Millisecond, common.NewSilentLogger())

	_, err := svc.Fetch(context.Background(), "AAPL")
	if !errors.Is(err, common.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestFetch_RateLimitedPastDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := yahoo.NewClient(yahoo.WithBaseURL(srv.URL), yahoo.WithRateLimit(1))
	svc := NewService(client, 100*time.Millisecond, common.NewSilentLogger())

	// first lookup spends the only token
	if _, err := svc.Fetch(context.Background(), "AAPL"); !errors.Is(err, common.ErrUnknownSymbol) {
		t.Fatalf("expected unknown symbol on first lookup, got %v", err)
	}

	_, err := svc.Fetch(context.Background(), "AAPL")
	if !errors.Is(err, common.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if errors.Is(err, common.ErrQuoteProvider) {
		t.Errorf("timeout must not also classify as provider error: %v", err)
	}
}

func TestFetch_InvalidSymbolSkipsProvider(t *testing.T) {
	p := &mockProvider{fields: fullFields()}

	_, err := newTestService(p).Fetch(context.Background(), "AA PL;")
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if p.calls != 0 {
		t.Errorf("provider should not be called")
	}
}

func TestRound2(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{1.234, 1.23},
		{1.235, 1.24},
		{2951.2345, 2951.23},
		{0, 0},
		{-1.005, -1},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
