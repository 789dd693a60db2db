package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics shared by the four services. Each binary calls Register
// once at startup and serves them on its own /metrics route.
var (
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_events_published_total",
			Help: "Total number of events published, by stream and event type",
		},
		[]string{"stream", "event_type"},
	)

	EventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_events_consumed_total",
			Help: "Total number of events consumed, by stream, consumer group and event type",
		},
		[]string{"stream", "group", "event_type"},
	)

	EventsDeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_events_dead_lettered_total",
			Help: "Total number of malformed events sent to the dead-letter stream",
		},
		[]string{"stream"},
	)

	DeliveryMergesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_delivery_merges_total",
			Help: "Total number of delivery record merges, by resulting status",
		},
		[]string{"status"},
	)

	MergeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fulfillment_delivery_merge_duration_seconds",
			Help:    "Duration of delivery record merges",
			Buckets: prometheus.DefBuckets,
		},
	)

	VerificationAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fulfillment_status_verification_attempts_total",
			Help: "Total number of tracking status verification calls",
		},
	)

	NotificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_notifications_sent_total",
			Help: "Total number of notification dispatch attempts, by mode and result",
		},
		[]string{"mode", "result"},
	)
)

// Register registers all metrics on the default registry.
func Register() {
	prometheus.MustRegister(EventsPublishedTotal)
	prometheus.MustRegister(EventsConsumedTotal)
	prometheus.MustRegister(EventsDeadLetteredTotal)
	prometheus.MustRegister(DeliveryMergesTotal)
	prometheus.MustRegister(MergeDuration)
	prometheus.MustRegister(VerificationAttemptsTotal)
	prometheus.MustRegister(NotificationsSentTotal)
}
