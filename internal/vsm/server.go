// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package vsm

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/analemma-bridge/governance-core/internal/audit"
	"github.com/analemma-bridge/governance-core/internal/pipeline"
	"github.com/analemma-bridge/governance-core/internal/policy"
	"github.com/analemma-bridge/governance-core/internal/reorder"
	"github.com/analemma-bridge/governance-core/internal/telemetry"
)

// Server is the Virtual Segment Manager's HTTP surface.
type Server struct {
	pipeline *pipeline.Pipeline
	registry *policy.Registry
	auditReg audit.Registry
	reorder  *reorder.Buffer
	log      *telemetry.Logger
	promReg  *prometheus.Registry
}

// New builds a Server around its collaborators. promReg is the
// Prometheus registry the pipeline's Metrics were registered against, so
// GET /v1/metrics can expose the same counters.
func New(
	p *pipeline.Pipeline,
	registry *policy.Registry,
	auditReg audit.Registry,
	reorderBuf *reorder.Buffer,
	log *telemetry.Logger,
	promReg *prometheus.Registry,
) *Server {
	return &Server{
		pipeline: p,
		registry: registry,
		auditReg: auditReg,
		reorder:  reorderBuf,
		log:      log,
		promReg:  promReg,
	}
}

// Handler builds the full CORS-wrapped mux.Router for the VSM's HTTP
// surface, grounded on the teacher's own globalRouter/globalCORS wiring in
// platform/agent/run.go.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/v1/segment/propose", s.handlePropose).Methods(http.MethodPost)
	router.HandleFunc("/v1/segment/observe", s.handleObserve).Methods(http.MethodPost)
	router.HandleFunc("/v1/segment/fail", s.handleFail).Methods(http.MethodPost)
	router.HandleFunc("/v1/policy/sync", s.handlePolicySync).Methods(http.MethodGet)
	router.HandleFunc("/v1/workflow/{id}", s.handleDeleteWorkflow).Methods(http.MethodDelete)
	router.HandleFunc("/v1/health", s.handleHealth).Methods(http.MethodGet)

	if s.promReg != nil {
		router.Handle("/v1/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return requestIDMiddleware(c.Handler(router))
}

// requestIDMiddleware stamps every request with a correlation ID, mirroring
// the teacher's request-ID convention for log correlation.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), reqID)))
	})
}
