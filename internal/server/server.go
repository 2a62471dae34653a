// Package server exposes the dashboard over a JSON and PNG HTTP API.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bobmcallan/tickerboard/internal/app"
	"github.com/bobmcallan/tickerboard/internal/common"
)

// Server serves the dashboard API for one App.
type Server struct {
	app          *app.App
	server       *http.Server
	logger       *common.Logger
	shutdownChan chan struct{}
}

// SetShutdownChannel registers the channel signalled by POST /api/shutdown.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// NewServer builds the routed, middleware wrapped server for a.
func NewServer(a *app.App) *Server {
	s := &Server{app: a, logger: a.Logger}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = newHTTPServer(a.Config, withMiddleware(mux,
		allowBrowserReads,
		requestLog(a.Logger),
		recoverPanics(a.Logger),
	))
	return s
}

// newHTTPServer sizes the write timeout so a cold dataset fetch that runs
// to warehouse.timeout still reaches the client.
func newHTTPServer(cfg *common.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Warehouse.GetTimeout() + 15*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// Handler returns the wrapped handler; tests drive it directly.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Dashboard API listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
