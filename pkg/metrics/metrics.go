package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RelayMetrics counts outbox relay activity.
type RelayMetrics struct {
	EventsPublished      *prometheus.CounterVec
	EventsFailed         prometheus.Counter
	NotificationsCreated *prometheus.CounterVec
	BatchDuration        prometheus.Histogram
}

// NewRelayMetrics registers the relay collectors on the given registerer.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	factory := promauto.With(reg)
	return &RelayMetrics{
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bazarly",
			Subsystem: "outbox",
			Name:      "events_published_total",
			Help:      "Outbox events successfully relayed, by event type.",
		}, []string{"event_type"}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bazarly",
			Subsystem: "outbox",
			Name:      "events_failed_total",
			Help:      "Outbox events that failed to relay.",
		}),
		NotificationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bazarly",
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications written, by recipient kind.",
		}, []string{"recipient_kind"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bazarly",
			Subsystem: "outbox",
			Name:      "batch_duration_seconds",
			Help:      "Time spent processing one relay batch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
