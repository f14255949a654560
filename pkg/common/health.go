// Package common holds process-level HTTP endpoints shared by binaries.
package common

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync/atomic"
	"time"

	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthServer serves liveness, readiness, Prometheus metrics and runtime
// debugging endpoints on a single listener.
type HealthServer struct {
	ready  *atomic.Bool
	server *http.Server
}

// NewHealthServer builds the server. Readiness reports 503 until ready is set.
// Metrics are gathered from gatherer.
func NewHealthServer(addr string, ready *atomic.Bool, gatherer prometheus.Gatherer) (*HealthServer, error) {
	h := &HealthServer{ready: ready}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", h.health)
	mux.HandleFunc("/v1/readiness", h.readiness)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	if err := statsviz.Register(mux); err != nil {
		return nil, fmt.Errorf("failed to register statsviz: %w", err)
	}

	h.server = &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(mux, "health"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h, nil
}

// Server exposes the underlying http.Server for ListenAndServe and Shutdown.
func (h *HealthServer) Server() *http.Server { return h.server }

// Handler returns the instrumented routing handler.
func (h *HealthServer) Handler() http.Handler { return h.server.Handler }

func (h *HealthServer) health(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "ok")
}

func (h *HealthServer) readiness(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
