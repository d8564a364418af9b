package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-jeelabs/internal/bridges/jeelabs"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// Probes
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{Registry: s.metrics}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", s.handleListNodes)
			r.Get("/{id}", s.handleGetNode)
		})
	})

	return r
}

// handleHealthz reports that the process is alive.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleReadyz reports whether the bridge is healthy.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	health := s.bridge.Health()
	status := http.StatusOK
	if health.Status != jeelabs.HealthHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": health.Status,
		"reason": health.Reason,
	})
}

// handleStatus returns the current health message.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Health())
}

// handleListNodes returns the last reading of every node.
func (s *Server) handleListNodes(w http.ResponseWriter, _ *http.Request) {
	nodes := s.bridge.LastReadings()
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	writeJSON(w, http.StatusOK, map[string]any{
		"node_ids": ids,
		"nodes":    nodes,
		"count":    len(nodes),
	})
}

// handleGetNode returns the last reading of one node.
func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	node, ok := s.bridge.LastReading(id)
	if !ok {
		writeNotFound(w, "no reading for node "+id)
		return
	}
	writeJSON(w, http.StatusOK, node)
}
