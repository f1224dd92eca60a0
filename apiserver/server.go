// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package apiserver is the engine's thin HTTP surface: a gorilla/mux
// router wrapped in rs/cors, exposing health, metrics and the
// workflow-execution endpoints this engine owns.
package apiserver

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"axonflow/workflowengine/engine"
	"axonflow/workflowengine/shared/logger"
)

// Server wires a Driver into an HTTP surface, with a structured logger and
// the process start time used for the uptime fields.
type Server struct {
	Driver *engine.Driver
	log    *logger.Logger
	start  time.Time
}

// New builds a Server around driver. The component name fed to
// shared/logger.New tags every structured log line this process emits.
func New(driver *engine.Driver) *Server {
	return &Server{
		Driver: driver,
		log:    logger.New("workflowengine-apiserver"),
		start:  time.Now(),
	}
}

// Handler builds the complete CORS-wrapped mux.Router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/metrics/summary", s.metricsSummaryHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/workflows/run", s.runWorkflowHandler).Methods(http.MethodPost)
	r.HandleFunc("/workflows/{id}", s.getExecutionHandler).Methods(http.MethodGet)
	r.HandleFunc("/workflows/tenant/{tenant_id}", s.tenantExecutionsHandler).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// ListenAndServe is a thin convenience wrapper, the same shape
// cmd/workflowengine's entry point calls into.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("", "", "apiserver listening", map[string]interface{}{"addr": addr})
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"service":    "axonflow-workflowengine",
		"uptime_sec": time.Since(s.start).Seconds(),
	})
}

// metricsSummaryHandler is the JSON sibling to Prometheus's /metrics,
// for callers that don't want to parse exposition format.
func (s *Server) metricsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_sec": time.Since(s.start).Seconds(),
	})
}
