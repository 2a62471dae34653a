package server

import (
	"net/http"

	"github.com/bobmcallan/tickerboard/internal/models"
	"github.com/bobmcallan/tickerboard/internal/services/dashboard"
	"github.com/bobmcallan/tickerboard/internal/services/view"
)

// handleDatasets handles GET /api/datasets.
func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ttl_seconds": int64(s.app.Config.Cache.GetTTL().Seconds()),
		"datasets":    s.app.DatasetCache.Snapshot(),
	})
}

func (s *Server) handleGeneral(w http.ResponseWriter, r *http.Request, symbol string) {
	tab, err := s.app.DashboardService.General(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tab)
}

func (s *Server) handleInsiders(w http.ResponseWriter, r *http.Request, symbol string) {
	metric, err := dashboard.ParseMetric(r.URL.Query().Get("metric"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	tab, err := s.app.DashboardService.Insiders(r.Context(), symbol, metric)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tab)
}

func (s *Server) handleAnalysts(w http.ResponseWriter, r *http.Request, symbol string) {
	tab, err := s.app.DashboardService.Analysts(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tab)
}

// handleView returns raw resolver output for one view kind.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request, symbol, rawKind string) {
	kind, err := view.ParseKind(rawKind)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	v, err := s.app.DashboardService.View(r.Context(), symbol, kind)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request, symbol, name string) {
	metric := models.InsiderMetric(r.URL.Query().Get("metric"))

	png, err := s.app.DashboardService.Chart(r.Context(), symbol, name, metric)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WritePNG(w, png)
}
