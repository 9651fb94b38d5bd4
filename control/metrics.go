// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors describing transport activity.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "hioload_rpc"

// Metrics holds the collectors updated by the server.
type Metrics struct {
	ActiveConnections      prometheus.Gauge
	AcceptedConnections    prometheus.Counter
	Upgrades               prometheus.Counter
	Disconnects            *prometheus.CounterVec
	Messages               *prometheus.CounterVec
	DispatchDuration       prometheus.Histogram
	Announcements          prometheus.Counter
	AnnouncementDeliveries *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg gets a private
// registry, which keeps several servers in one process from colliding.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of connections currently held in the registry",
		}),
		AcceptedConnections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepted_connections_total",
			Help:      "Total number of accepted connections",
		}),
		Upgrades: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_upgrades_total",
			Help:      "Total number of connections promoted to WebSocket",
		}),
		Disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Total number of removed connections by reason",
		}, []string{"reason"}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Total number of JSON-RPC messages by protocol and direction",
		}, []string{"protocol", "direction"}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent in the processor per request",
			Buckets:   prometheus.DefBuckets,
		}),
		Announcements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Total number of announcements broadcast",
		}),
		AnnouncementDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcement_deliveries_total",
			Help:      "Per-connection announcement deliveries by result",
		}, []string{"result"}),
	}
}
