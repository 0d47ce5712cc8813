package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox delivery results.
const (
	DeliveryPublished = "published"
	DeliveryRetry     = "retry"
	DeliveryParked    = "parked"
)

// OutboxMetrics tracks the relay from outbox_events to Pub/Sub.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	batch      prometheus.Histogram
	batchSize  prometheus.Histogram
}

// NewOutboxMetrics registers the publisher metrics. A nil registerer yields a
// no-op collector.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clips_outbox_deliveries_total",
			Help: "Outbox rows settled by the publisher, by event type and result.",
		}, []string{"event_type", "result"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clips_outbox_batch_duration_seconds",
			Help:    "Wall time of one claimed outbox batch.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 7),
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clips_outbox_batch_rows",
			Help:    "Rows settled per outbox batch.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
	reg.MustRegister(m.deliveries, m.batch, m.batchSize)
	return m
}

// ObserveDelivery counts one settled row.
func (m *OutboxMetrics) ObserveDelivery(eventType, result string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), result).Inc()
}

// ObserveBatch records a finished batch, including failed ones.
func (m *OutboxMetrics) ObserveBatch(rows int, took time.Duration) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(took.Seconds())
	m.batchSize.Observe(float64(rows))
}
