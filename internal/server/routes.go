package server

import (
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/tickerboard/internal/common"
)

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Datasets
	mux.HandleFunc("/api/datasets", s.handleDatasets)

	// Tickers
	mux.HandleFunc("/api/tickers/", s.routeTickers)
}

// routeTickers dispatches /api/tickers/{symbol}/* to the appropriate handler.
func (s *Server) routeTickers(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/tickers/")
	parts := strings.SplitN(path, "/", 3)
	if parts[0] == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "symbol is required in path", string(common.KindInvalidInput))
		return
	}
	if len(parts) < 2 {
		WriteErrorWithCode(w, http.StatusNotFound, "Not found", codeNotFound)
		return
	}

	symbol := parts[0]
	rest := ""
	if len(parts) == 3 {
		rest = parts[2]
	}

	switch {
	case parts[1] == "general" && rest == "":
		s.handleGeneral(w, r, symbol)
	case parts[1] == "insiders" && rest == "":
		s.handleInsiders(w, r, symbol)
	case parts[1] == "analysts" && rest == "":
		s.handleAnalysts(w, r, symbol)
	case parts[1] == "views" && rest != "":
		s.handleView(w, r, symbol, rest)
	case parts[1] == "charts" && strings.HasSuffix(rest, ".png"):
		s.handleChart(w, r, symbol, strings.TrimSuffix(rest, ".png"))
	default:
		WriteErrorWithCode(w, http.StatusNotFound, "Not found", codeNotFound)
	}
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.VersionInfo())
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	correlationID := r.URL.Query().Get("correlation_id")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := map[string]interface{}{
		"version":       common.GetVersion(),
		"build":         common.GetBuild(),
		"commit":        common.GetGitCommit(),
		"uptime":        time.Since(s.app.StartupTime).Round(time.Second).String(),
		"started_at":    s.app.StartupTime,
		"heap_alloc_mb": float64(m.HeapAlloc) / 1024 / 1024,
	}
	if s.app.Warehouse != nil {
		resp["warehouse_dialect"] = s.app.Warehouse.Dialect()
	}
	if s.app.QuoteProvider != nil {
		resp["quote_provider"] = s.app.QuoteProvider.Name()
	}

	if correlationID != "" {
		logs, err := s.app.Logger.GetMemoryLogsForCorrelation(correlationID)
		if err == nil {
			resp["correlation_logs"] = logs
		}
	}

	logs, err := s.app.Logger.GetMemoryLogsWithLimit(limit)
	if err == nil {
		resp["recent_logs"] = logs
	}

	WriteJSON(w, http.StatusOK, resp)
}
