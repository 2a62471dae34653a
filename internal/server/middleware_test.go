package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bobmcallan/tickerboard/internal/common"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestLog_GeneratesCorrelationID(t *testing.T) {
	handler := requestLog(common.NewSilentLogger())(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(correlationHeader); len(got) != 8 {
		t.Errorf("Expected 8-char generated correlation ID, got %q", got)
	}
}

func TestRequestLog_PropagatesCallerID(t *testing.T) {
	handler := requestLog(common.NewSilentLogger())(http.HandlerFunc(okHandler))

	for _, h := range []string{"X-Request-ID", correlationHeader} {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set(h, "req-123")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get(correlationHeader); got != "req-123" {
			t.Errorf("%s: expected req-123, got %q", h, got)
		}
	}
}

func TestRequestLog_RecordsStatusAndSize(t *testing.T) {
	var captured *statusRecorder
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = w.(*statusRecorder)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("short and stout"))
	})
	handler := requestLog(common.NewSilentLogger())(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/tickers/ABC/general", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if captured == nil {
		t.Fatal("Expected handler to receive the statusRecorder")
	}
	if captured.status != http.StatusTeapot {
		t.Errorf("Expected first status 418 to stick, got %d", captured.status)
	}
	if captured.size != len("short and stout") {
		t.Errorf("Expected %d bytes, got %d", len("short and stout"), captured.size)
	}
}

func TestStatusRecorder_Flushes(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: rr, status: http.StatusOK}
	rec.Write([]byte("bye"))
	rec.Flush()

	if !rr.Flushed {
		t.Error("Expected Flush to reach the underlying writer")
	}
}

func TestTickerOf(t *testing.T) {
	cases := map[string]string{
		"/api/tickers/AAPL/general":        "AAPL",
		"/api/tickers/MSFT":                "MSFT",
		"/api/tickers/":                    "",
		"/api/health":                      "",
		"/api/tickers/BHP.AX/charts/price": "BHP.AX",
	}
	for path, want := range cases {
		if got := tickerOf(path); got != want {
			t.Errorf("tickerOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestAllowBrowserReads_Preflight(t *testing.T) {
	called := false
	handler := allowBrowserReads(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/tickers/AAPL/general", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rr.Code)
	}
	if called {
		t.Error("Preflight should not reach the handler")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Missing Access-Control-Allow-Origin")
	}
	if rr.Header().Get("Access-Control-Expose-Headers") != correlationHeader {
		t.Error("Correlation header not exposed")
	}
}

func TestRecoverPanics(t *testing.T) {
	handler := recoverPanics(common.NewSilentLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

func TestRecoverPanics_AfterReplyStarted(t *testing.T) {
	logger := common.NewSilentLogger()
	handler := withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		panic("boom")
	}), requestLog(logger), recoverPanics(logger))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected started 200 to stand, got %d", rr.Code)
	}
	if rr.Body.String() != "partial" {
		t.Errorf("Expected no error body appended, got %q", rr.Body.String())
	}
}
