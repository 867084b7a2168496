// Package metrics provides custom Prometheus metrics for the PlateWatch-Go application.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ALPRMetrics contains all Prometheus metrics related to plate recognition.
type ALPRMetrics struct {
	DetectionCounter   *prometheus.CounterVec
	NotDetectedCounter *prometheus.CounterVec
	PipelineDuration   prometheus.Histogram

	registry *prometheus.Registry
}

// NewALPRMetrics creates a new instance of ALPRMetrics and registers it
// with the provided registry.
func NewALPRMetrics(registry *prometheus.Registry) (*ALPRMetrics, error) {
	m := &ALPRMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ALPR metrics: %w", err)
	}
	return m, nil
}

func (m *ALPRMetrics) initMetrics() {
	m.DetectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewatch_detections_total",
			Help: "Total number of accepted plate detections partitioned by registry status.",
		},
		[]string{"status"},
	)

	m.NotDetectedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewatch_not_detected_total",
			Help: "Total number of pipeline runs ending without a detection, partitioned by the stage that stopped them.",
		},
		[]string{"stage"},
	)

	m.PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "platewatch_pipeline_duration_seconds",
			Help:    "Time taken for one full recognition pipeline run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
		},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *ALPRMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DetectionCounter.Describe(ch)
	m.NotDetectedCounter.Describe(ch)
	ch <- m.PipelineDuration.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *ALPRMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DetectionCounter.Collect(ch)
	m.NotDetectedCounter.Collect(ch)
	ch <- m.PipelineDuration
}
