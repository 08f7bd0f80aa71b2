package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"runtrack/internal/export"
	"runtrack/internal/store"
	"runtrack/internal/tracker"
)

type Server struct {
	ctx      context.Context
	store    *store.Store
	exporter *export.Exporter
	router   *chi.Mux
}

type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// New creates a new API server instance. The Prometheus gatherer backing
// /metrics is injected so the emitter and the exposition endpoint share one
// registry without relying on package globals.
func New(ctx context.Context, st *store.Store, trk *tracker.Tracker, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		ctx:      ctx,
		store:    st,
		exporter: export.New(st),
		router:   chi.NewRouter(),
	}

	// Set up middleware
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)

	s.router.Route("/api", func(r chi.Router) {
		r.Mount("/runs", NewRunRouter(ctx, st, trk, r))
		r.Get("/export", s.GetExport)
	})

	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return s
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Listen blocks serving HTTP until the listener fails or the parent context
// is cancelled.
func (s *Server) Listen(conf *Config) error {
	addr := fmt.Sprintf("%s:%d", conf.Host, conf.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}

	log.Info().Str("addr", addr).Msg("API server listening")
	return srv.ListenAndServe()
}

// GetExport renders the completed-runs snapshot as a single JSON array.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 1000)

	records, err := s.exporter.Export(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to export job runs", http.StatusInternalServerError)
		log.Error().Err(err).Msg("Failed to export job runs")
		return
	}

	serveJson(w, records)
}

func readJson(w http.ResponseWriter, r *http.Request, payload any) error {
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Error().Err(err).Msg("Could not close request body")
		}
	}()

	err := json.NewDecoder(r.Body).Decode(payload)
	if err != nil {
		http.Error(w, "could not parse request body to payload", http.StatusBadRequest)
	}
	return err
}

func serveJson(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		http.Error(w, "Failed to encode payload", http.StatusInternalServerError)
		log.Error().Err(err).Msg("JSON encoding issue")
	}
}
