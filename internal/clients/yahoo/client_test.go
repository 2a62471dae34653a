package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/tickerboard/internal/common"
)

const fullSummary = `{
  "quoteSummary": {
    "result": [{
      "price": {"shortName": "Apple Inc.", "marketCap": {"raw": 2950000000000, "fmt": "2.95T"}},
      "summaryDetail": {
        "previousClose": {"raw": 189.84, "fmt": "189.84"},
        "dividendRate": {"raw": 0.96, "fmt": "0.96"}
      },
      "assetProfile": {"sector": "Technology"},
      "defaultKeyStatistics": {
        "trailingEps": {"raw": 6.42, "fmt": "6.42"},
        "heldPercentInsiders": {"raw": 0.00071, "fmt": "0.07%"},
        "shortRatio": {"raw": 1.5, "fmt": "1.5"},
        "sharesOutstanding": {"raw": 15550000000, "fmt": "15.55B"}
      }
    }],
    "error": null
  }
}`

func TestFetchQuote_ParsesAllFields(t *testing.T) {
	var capturedPath, capturedModules, capturedUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedModules = r.URL.Query().Get("modules")
		capturedUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fullSummary))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithUserAgent("test-agent"))
	q, err := client.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchQuote failed: %v", err)
	}

	if capturedPath != "/v10/finance/quoteSummary/AAPL" {
		t.Errorf("unexpected path %s", capturedPath)
	}
	for _, m := range []string{"price", "summaryDetail", "assetProfile", "defaultKeyStatistics"} {
		if !strings.Contains(capturedModules, m) {
			t.Errorf("modules %q missing %s", capturedModules, m)
		}
	}
	if capturedUA != "test-agent" {
		t.Errorf("expected user agent test-agent, got %s", capturedUA)
	}

	if q.ShortName == nil || *q.ShortName != "Apple Inc." {
		t.Errorf("unexpected shortName %v", q.ShortName)
	}
	if q.Sector == nil || *q.Sector != "Technology" {
		t.Errorf("unexpected sector %v", q.Sector)
	}
	if q.PreviousClose == nil || *q.PreviousClose != 189.84 {
		t.Errorf("unexpected previousClose %v", q.PreviousClose)
	}
	if q.MarketCap == nil || *q.MarketCap != 2950000000000 {
		t.Errorf("unexpected marketCap %v", q.MarketCap)
	}
	if q.HeldPercentInsiders == nil || *q.HeldPercentInsiders != 0.00071 {
		t.Errorf("unexpected heldPercentInsiders %v", q.HeldPercentInsiders)
	}
	if q.DividendRate == nil || *q.DividendRate != 0.96 {
		t.Errorf("unexpected dividendRate %v", q.DividendRate)
	}
	if q.SharesOutstanding == nil || *q.SharesOutstanding != 15550000000 {
		t.Errorf("unexpected sharesOutstanding %v", q.SharesOutstanding)
	}
}

func TestFetchQuote_EmptyEnvelopeIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary":{"result":[{
			"price": {"shortName": "No Dividend Co"},
			"summaryDetail": {"previousClose": {"raw": 10}, "dividendRate": {}},
			"defaultKeyStatistics": {}
		}]}}`))
	}))
	defer srv.Close()

	q, err := NewClient(WithBaseURL(srv.URL)).FetchQuote(context.Background(), "NODV")
	if err != nil {
		t.Fatalf("FetchQuote failed: %v", err)
	}
	if q.DividendRate != nil {
		t.Errorf("expected nil dividendRate, got %v", *q.DividendRate)
	}
	if q.Sector != nil {
		t.Errorf("expected nil sector")
	}
	if q.TrailingEps != nil {
		t.Errorf("expected nil trailingEps")
	}
	if q.PreviousClose == nil || *q.PreviousClose != 10 {
		t.Errorf("unexpected previousClose %v", q.PreviousClose)
	}
}

func TestFetchQuote_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for symbol: ZZZZ"}}}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchQuote(context.Background(), "ZZZZ")
	if !errors.Is(err, common.ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestFetchQuote_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchQuote(context.Background(), "ZZZZ")
	if !errors.Is(err, common.ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestFetchQuote_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("Too Many Requests"))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchQuote(context.Background(), "AAPL")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", apiErr.StatusCode)
	}
}

func TestFetchQuote_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchQuote(ctx, "AAPL")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFetchQuote_RateLimitWaitPastDeadline(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:1"), WithRateLimit(1))
	if !c.limiter.Allow() {
		t.Fatal("expected initial token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.FetchQuote(ctx, "AAPL")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if ctx.Err() != nil {
		t.Errorf("limiter should refuse before the deadline passes, took %v", time.Since(start))
	}
}
