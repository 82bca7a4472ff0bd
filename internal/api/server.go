// Package api exposes the exoplanet classifier over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// RouterConfig holds the options that shape the router.
type RouterConfig struct {
	CORSOrigin string
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
	Metrics  MetricsInterface
}

// NewRouter registers every route under both / and /api.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}

	r := mux.NewRouter()
	for _, prefix := range []string{"", "/api"} {
		r.HandleFunc(prefix+"/predict", h.Predict).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc(prefix+"/fields", h.Fields).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc(prefix+"/health", h.Health).Methods(http.MethodGet, http.MethodOptions)
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.Use(
		requestIDMiddleware,
		loggingMiddleware(cfg.Metrics),
		recoveryMiddleware,
		mux.CORSMethodMiddleware(r),
		corsMiddleware(origin),
	)
	return r
}

// Server wraps the HTTP server for the prediction API
type Server struct {
	server *http.Server
}

// NewServer creates the HTTP server. There is no write timeout since a
// prediction blocks for as long as inference takes; the request context
// bounds it instead.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves HTTP requests until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction API")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
