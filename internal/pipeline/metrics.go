// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the governance pipeline's Prometheus instrumentation,
// exposed at GET /v1/metrics per SPEC_FULL §4.7/§1.1.
type Metrics struct {
	verdictTotal  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewMetrics registers the pipeline's counters/histograms against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verdictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analemma_bridge",
			Subsystem: "governance",
			Name:      "segment_verdict_total",
			Help:      "Count of segment commit verdicts by status.",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "analemma_bridge",
			Subsystem: "governance",
			Name:      "stage_duration_seconds",
			Help:      "Latency of the governance pipeline stage that terminated the request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	reg.MustRegister(m.verdictTotal, m.stageDuration)
	return m
}

// CountVerdict increments the verdict counter for status.
func (m *Metrics) CountVerdict(status Status) {
	m.verdictTotal.WithLabelValues(string(status)).Inc()
}

// ObserveStage records how long the pipeline took to reach its
// terminating stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
