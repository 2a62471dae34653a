package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/tickerboard/internal/common"
)

const correlationHeader = "X-Correlation-ID"

// statusRecorder remembers the first status written and the body size.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.wroteHeader {
		return
	}
	rec.status = code
	rec.wroteHeader = true
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.size += n
	return n, err
}

// Flush lets the shutdown handler push its reply before the server stops.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// correlationID reuses a caller supplied id or mints a short one.
func correlationID(r *http.Request) string {
	for _, h := range []string{correlationHeader, "X-Request-ID"} {
		if id := strings.TrimSpace(r.Header.Get(h)); id != "" {
			return id
		}
	}
	return uuid.New().String()[:8]
}

// tickerOf returns the symbol segment of /api/tickers/{symbol}/... paths.
func tickerOf(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/tickers/")
	if !ok {
		return ""
	}
	symbol, _, _ := strings.Cut(rest, "/")
	return symbol
}

// requestLog tags each request with a correlation id and logs it once served.
// Server errors log at error level, client errors at warn, the rest at debug.
func requestLog(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := correlationID(r)
			w.Header().Set(correlationHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			reqLogger := logger.WithCorrelationId(id)
			event := reqLogger.Debug()
			switch {
			case rec.status >= 500:
				event = reqLogger.Error()
			case rec.status >= 400:
				event = reqLogger.Warn()
			}
			if symbol := tickerOf(r.URL.Path); symbol != "" {
				event = event.Str("symbol", symbol)
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Int("size", rec.size).
				Dur("elapsed", time.Since(start)).
				Msg("Request served")
		})
	}
}

// recoverPanics turns a handler panic into a 500 unless a reply already started.
func recoverPanics(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				logger.WithCorrelationId(w.Header().Get(correlationHeader)).Error().
					Str("panic", fmt.Sprint(v)).
					Str("path", r.URL.Path).
					Msg("Handler panicked")
				if rec, ok := w.(*statusRecorder); ok && rec.wroteHeader {
					return
				}
				WriteErrorWithCode(w, http.StatusInternalServerError, "Internal server error", codeInternal)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// allowBrowserReads answers CORS preflights for the read-only dashboard API.
func allowBrowserReads(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+correlationHeader)
		h.Set("Access-Control-Expose-Headers", correlationHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withMiddleware wraps h so the first middleware listed runs first.
func withMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
