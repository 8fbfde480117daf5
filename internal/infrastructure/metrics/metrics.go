package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qr_order",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qr_order",
			Subsystem: "chat",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Message flow counters
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qr_order",
			Subsystem: "chat",
			Name:      "messages_sent_total",
			Help:      "Total messages created, labeled by message type",
		},
		[]string{"type"},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qr_order",
			Subsystem: "chat",
			Name:      "broadcasts_total",
			Help:      "Total socket events broadcast to conversation rooms",
		},
		[]string{"event"},
	)

	// Connected websocket clients
	SocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "qr_order",
			Subsystem: "chat",
			Name:      "socket_clients",
			Help:      "Currently connected websocket clients",
		},
	)

	// Calendar occurrence expansion duration
	OccurrenceExpansionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "qr_order",
			Subsystem: "calendar",
			Name:      "occurrence_expansion_duration_seconds",
			Help:      "Recurring event expansion duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Notification deliveries
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qr_order",
			Subsystem: "calendar",
			Name:      "notifications_total",
			Help:      "Total assignment notification deliveries",
		},
		[]string{"status"},
	)

	// DB query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qr_order",
			Subsystem: "chat",
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"query_type"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordMessageSent records a created message
func RecordMessageSent(messageType string) {
	MessagesSentTotal.WithLabelValues(messageType).Inc()
}

// RecordBroadcast records a socket event fan-out
func RecordBroadcast(event string) {
	BroadcastsTotal.WithLabelValues(event).Inc()
}

// SetSocketClients sets the connected client gauge
func SetSocketClients(count int) {
	SocketClients.Set(float64(count))
}

// RecordNotification records an assignment notification attempt
func RecordNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(queryType string, durationSec float64) {
	DBQueryDuration.WithLabelValues(queryType).Observe(durationSec)
}
