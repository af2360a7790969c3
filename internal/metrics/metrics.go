// Package metrics registers the agent's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the agent's instrumentation.
type Metrics struct {
	RecordsBuffered    prometheus.Counter
	RecordsDelivered   prometheus.Counter
	DeliveryFailures   prometheus.Counter
	ReconcileAnomalies prometheus.Counter
	RejectedPositions  prometheus.Counter
	QueueDepth         prometheus.Gauge
}

// New registers the agent's collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsBuffered: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackd_records_buffered_total",
			Help: "Records materialized into the durable buffer.",
		}),
		RecordsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackd_records_delivered_total",
			Help: "Records acknowledged by the server and removed from the buffer.",
		}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackd_delivery_failures_total",
			Help: "Failed metrics submission attempts.",
		}),
		ReconcileAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackd_reconcile_anomalies_total",
			Help: "Successful submissions after which no buffer rows were deleted.",
		}),
		RejectedPositions: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackd_rejected_positions_total",
			Help: "Position fixes rejected as implausible.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trackd_queue_depth",
			Help: "Records currently waiting in the durable buffer.",
		}),
	}
}
