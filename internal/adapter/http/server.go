// Package http exposes the service API: health, readiness, and metrics
// endpoints plus the catalog and series routes.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riverwatch/river-gauge-service/internal/domain"
)

// CatalogSession is the coordinator surface the API serves from.
type CatalogSession interface {
	Lookup(p domain.Provider, id string) (domain.SensorSite, bool)
	FilterByRegion(code string) map[domain.Provider][]domain.SensorSite
	TriggerLoad(ctx context.Context) bool
	CheckReadiness(ctx context.Context) error
}

// BundleBuilder builds the merged series bundle for one site.
type BundleBuilder interface {
	BuildBundle(ctx context.Context, site domain.SensorSite) domain.MergedSeriesBundle
}

// Server exposes the HTTP API.
type Server struct {
	httpServer *http.Server
	session    CatalogSession
	bundles    BundleBuilder
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, session CatalogSession, bundles BundleBuilder, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		session: session,
		bundles: bundles,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/sites", s.handleSites)
	mux.HandleFunc("GET /api/sites/{provider}/{id}/series", s.handleSeries)
	mux.HandleFunc("POST /api/catalog/refresh", s.handleRefresh)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.session.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleSites lists catalog sites, optionally restricted by provider and
// region query parameters.
func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	sites := s.session.FilterByRegion(region)

	if providerParam := r.URL.Query().Get("provider"); providerParam != "" {
		provider, ok := domain.ParseProvider(providerParam)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown provider"})
			return
		}
		sites = map[domain.Provider][]domain.SensorSite{provider: sites[provider]}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

// handleSeries builds and returns the merged series bundle for one site.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	provider, ok := domain.ParseProvider(r.PathValue("provider"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown provider"})
		return
	}

	site, found := s.session.Lookup(provider, r.PathValue("id"))
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "site not found"})
		return
	}

	bundle := s.bundles.BuildBundle(r.Context(), site)
	writeJSON(w, http.StatusOK, bundle)
}

// handleRefresh triggers a background bulk load. A load already in flight is
// reported, not queued.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.session.TriggerLoad(r.Context()) {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "in_flight"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
