package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// BroadcastMetrics contains all Prometheus metrics related to event broadcasting.
type BroadcastMetrics struct {
	EventsPublished *prometheus.CounterVec
	EventsDelivered *prometheus.CounterVec
	SubscriberGauge prometheus.Gauge

	registry *prometheus.Registry
}

// NewBroadcastMetrics creates a new instance of BroadcastMetrics and
// registers it with the provided registry.
func NewBroadcastMetrics(registry *prometheus.Registry) (*BroadcastMetrics, error) {
	m := &BroadcastMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register broadcast metrics: %w", err)
	}
	return m, nil
}

func (m *BroadcastMetrics) initMetrics() {
	m.EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewatch_broadcast_events_published_total",
			Help: "Total number of events published to the broadcaster, partitioned by event type.",
		},
		[]string{"event_type"},
	)

	m.EventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewatch_broadcast_events_delivered_total",
			Help: "Total number of per-subscriber deliveries, partitioned by event type.",
		},
		[]string{"event_type"},
	)

	m.SubscriberGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "platewatch_broadcast_subscribers",
			Help: "Current number of live event stream subscribers.",
		},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *BroadcastMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.EventsPublished.Describe(ch)
	m.EventsDelivered.Describe(ch)
	ch <- m.SubscriberGauge.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *BroadcastMetrics) Collect(ch chan<- prometheus.Metric) {
	m.EventsPublished.Collect(ch)
	m.EventsDelivered.Collect(ch)
	ch <- m.SubscriberGauge
}
