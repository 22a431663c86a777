package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes recorded after a message is persisted.
const (
	OutcomeDelivered = "delivered"
	OutcomeQueued    = "queued"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	MessagesPersisted *prometheus.CounterVec
	Deliveries        *prometheus.CounterVec
	SendFailures      *prometheus.CounterVec
	PersistLatency    prometheus.Histogram
	Connections       *prometheus.GaugeVec
	ReadReceipts      prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportline",
			Name:      "messages_persisted_total",
			Help:      "Messages appended to the store, by direction.",
		}, []string{"direction"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportline",
			Name:      "deliveries_total",
			Help:      "Persisted messages by live delivery outcome.",
		}, []string{"outcome"}),
		SendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportline",
			Name:      "send_failures_total",
			Help:      "Rejected or failed sends, by error code.",
		}, []string{"code"}),
		PersistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "supportline",
			Name:      "persist_duration_seconds",
			Help:      "Time spent appending a message to the store.",
			Buckets:   prometheus.DefBuckets,
		}),
		Connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "supportline",
			Name:      "gateway_connections",
			Help:      "Currently registered gateway connections, by role.",
		}, []string{"role"}),
		ReadReceipts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "supportline",
			Name:      "read_receipts_total",
			Help:      "Conversations marked as read.",
		}),
	}
	reg.MustRegister(
		m.MessagesPersisted,
		m.Deliveries,
		m.SendFailures,
		m.PersistLatency,
		m.Connections,
		m.ReadReceipts,
	)
	return m
}

// NewUnregistered returns collectors that are not exported anywhere.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
