// Package httpadapter exposes the pipeline over HTTP: health, readiness,
// and metrics endpoints plus the small API the map surface talks to.
package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-map-pipeline/internal/domain"
	"github.com/couchcryptid/quake-map-pipeline/internal/pipeline"
)

// Controller is the orchestrator surface the API forwards user intent to
// and reads derived state from.
type Controller interface {
	Snapshot() pipeline.Snapshot
	SetRange(rng domain.TimeRange)
	SetMinMagnitude(floor float64)
	SetViewport(bounds domain.ViewportBounds)
	SetMode(mode domain.PerformanceMode)
	CheckReadiness(ctx context.Context) error
}

// CacheAdmin exposes cache maintenance operations.
type CacheAdmin interface {
	Keys(ctx context.Context) []string
	Remove(ctx context.Context, key string)
	ClearAll(ctx context.Context) (int, error)
}

// Server exposes health, readiness, metrics, and pipeline API endpoints.
type Server struct {
	httpServer *http.Server
	controller Controller
	cacheAdmin CacheAdmin
	logger     *slog.Logger
}

// NewServer creates the HTTP server. cacheAdmin may be nil to disable the
// cache maintenance endpoints.
func NewServer(addr string, controller Controller, cacheAdmin CacheAdmin, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		controller: controller,
		cacheAdmin: cacheAdmin,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("PUT /api/filters", s.handleFilters)
	mux.HandleFunc("PUT /api/viewport", s.handleViewport)
	if cacheAdmin != nil {
		mux.HandleFunc("GET /api/cache", s.handleCacheKeys)
		mux.HandleFunc("DELETE /api/cache", s.handleCacheClear)
	}

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

	if err := s.controller.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// filtersRequest carries partial filter updates; absent fields are left
// unchanged.
type filtersRequest struct {
	Range        *string  `json:"range"`
	MinMagnitude *float64 `json:"minMagnitude"`
	Mode         *string  `json:"mode"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	var req filtersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filters body"})
		return
	}

	if req.Range != nil {
		s.controller.SetRange(domain.ParseTimeRange(*req.Range))
	}
	if req.MinMagnitude != nil {
		s.controller.SetMinMagnitude(*req.MinMagnitude)
	}
	if req.Mode != nil {
		s.controller.SetMode(domain.ParsePerformanceMode(*req.Mode))
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var bounds domain.ViewportBounds
	if err := json.NewDecoder(r.Body).Decode(&bounds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid viewport body"})
		return
	}
	if bounds.North < bounds.South || bounds.East < bounds.West {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid viewport bounds"})
		return
	}

	s.controller.SetViewport(bounds)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleCacheKeys(w http.ResponseWriter, r *http.Request) {
	keys := s.cacheAdmin.Keys(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// handleCacheClear removes one entry when ?key= is given, otherwise clears
// everything and reports how many entries were removed.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		s.cacheAdmin.Remove(r.Context(), key)
		writeJSON(w, http.StatusOK, map[string]any{"removed": 1})
		return
	}

	removed, err := s.cacheAdmin.ClearAll(r.Context())
	if err != nil {
		// Already-removed entries stay removed; report the partial count.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"removed": removed,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
